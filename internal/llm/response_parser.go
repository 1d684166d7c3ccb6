package llm

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/crateful/linernotes/pkg/types"
)

// CollaboratorResponse represents a single collaborator extracted from an LLM response
type CollaboratorResponse struct {
	Name              string   `json:"name"`
	Roles             []string `json:"roles"`
	TopCollaborations []string `json:"topCollaborations,omitempty"`
}

// CollaboratorListResponse represents the complete collaborator discovery response
type CollaboratorListResponse struct {
	Collaborators []CollaboratorResponse `json:"collaborators"`
}

// RolesResponse represents the role detection response for a single artist
type RolesResponse struct {
	Roles []string `json:"roles"`
}

// CollaborationDetailResponse represents the collaboration detail response:
// what two artists actually made together.
type CollaborationDetailResponse struct {
	Songs        []string `json:"songs"`
	Albums       []string `json:"albums"`
	Relationship string   `json:"relationship"`
}

// SkippedRoleInfo records a single role that was skipped because it was not
// in the allowed list. Surfaced in debug traces.
type SkippedRoleInfo struct {
	Collaborator string // collaborator name carrying the role
	Role         string // the unrecognized role string
}

// extractJSON extracts the first valid JSON object from a string that may contain extra text.
// This handles cases where LLMs add explanations before/after the JSON despite instructions.
func extractJSON(text string) string {
	// Remove common markdown code block markers
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	// Try to find JSON object boundaries
	start := strings.Index(text, "{")
	if start == -1 {
		return text // No JSON found, return as-is and let parser fail
	}

	// Find the matching closing brace
	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		// Handle string escaping
		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}

		// Track if we're inside a string
		if char == '"' {
			inString = !inString
			continue
		}

		// Only count braces outside of strings
		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					// Found complete JSON object, return it
					return text[start : i+1]
				}
			}
		}
	}

	return text // No complete JSON found, return as-is
}

// ParseCollaboratorResponse parses collaborator discovery JSON and filters out invalid entries.
// Unknown roles and empty names are skipped rather than failing the entire batch.
// Only returns an error if the JSON itself is malformed.
//
// Parameters:
//   - jsonStr: JSON string returned by the LLM (may contain extra text)
//
// Returns:
//   - Slice of valid CollaboratorResponse objects (may be shorter than LLM output)
//   - Error only if the JSON itself is malformed
func ParseCollaboratorResponse(jsonStr string) ([]CollaboratorResponse, error) {
	valid, _, err := ParseCollaboratorResponseDetailed(jsonStr)
	return valid, err
}

// ParseCollaboratorResponseDetailed parses collaborator discovery JSON and returns
// both valid collaborators and a list of skipped roles (unknown role strings).
//
// A collaborator with a mix of known and unknown roles keeps the known subset.
// A collaborator with no recognizable role at all is dropped, as is one with
// an empty name.
func ParseCollaboratorResponseDetailed(jsonStr string) ([]CollaboratorResponse, []SkippedRoleInfo, error) {
	cleanJSON := extractJSON(jsonStr)
	var response CollaboratorListResponse
	if err := json.Unmarshal([]byte(cleanJSON), &response); err != nil {
		return nil, nil, fmt.Errorf("failed to parse collaborator JSON: %w", err)
	}

	var valid []CollaboratorResponse
	var skipped []SkippedRoleInfo
	for _, collab := range response.Collaborators {
		name := strings.TrimSpace(collab.Name)
		if name == "" {
			log.Printf("response_parser: skipping collaborator with empty name")
			continue
		}

		roles := make([]string, 0, len(collab.Roles))
		for _, role := range collab.Roles {
			role = strings.ToLower(strings.TrimSpace(role))
			if !types.IsValidRole(types.Role(role)) {
				log.Printf("response_parser: skipping role %q on collaborator %q", role, name)
				skipped = append(skipped, SkippedRoleInfo{Collaborator: name, Role: role})
				continue
			}
			roles = append(roles, role)
		}
		if len(roles) == 0 {
			log.Printf("response_parser: skipping collaborator %q with no usable roles", name)
			continue
		}

		valid = append(valid, CollaboratorResponse{
			Name:              name,
			Roles:             roles,
			TopCollaborations: trimNonEmpty(collab.TopCollaborations),
		})
	}
	return valid, skipped, nil
}

// ParseRolesResponse parses role detection JSON and returns the valid role subset.
// Unknown roles are dropped with a log line; the result may be empty, in which
// case the caller applies its own default.
//
// Parameters:
//   - jsonStr: JSON string returned by the LLM
//
// Returns:
//   - Slice of valid roles (possibly empty)
//   - Error only if the JSON itself is malformed
func ParseRolesResponse(jsonStr string) ([]types.Role, error) {
	cleanJSON := extractJSON(jsonStr)
	var response RolesResponse
	if err := json.Unmarshal([]byte(cleanJSON), &response); err != nil {
		return nil, fmt.Errorf("failed to parse roles JSON: %w", err)
	}

	var roles []types.Role
	for _, raw := range response.Roles {
		role := types.Role(strings.ToLower(strings.TrimSpace(raw)))
		if !types.IsValidRole(role) {
			log.Printf("response_parser: skipping unknown role %q", raw)
			continue
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// ParseCollaborationDetailResponse parses collaboration detail JSON.
// It returns an error if the JSON is malformed.
//
// Parameters:
//   - jsonStr: JSON string returned by the LLM
//
// Returns:
//   - CollaborationDetailResponse object with empty strings filtered out
//   - Error if parsing fails
func ParseCollaborationDetailResponse(jsonStr string) (*CollaborationDetailResponse, error) {
	// Extract just the JSON part, ignoring any extra text
	cleanJSON := extractJSON(jsonStr)

	var response CollaborationDetailResponse
	if err := json.Unmarshal([]byte(cleanJSON), &response); err != nil {
		return nil, fmt.Errorf("failed to parse collaboration detail JSON: %w", err)
	}

	response.Songs = trimNonEmpty(response.Songs)
	response.Albums = trimNonEmpty(response.Albums)
	response.Relationship = strings.TrimSpace(response.Relationship)
	return &response, nil
}

// Candidates converts parsed collaborator responses into domain candidates.
func Candidates(collabs []CollaboratorResponse) []types.CollaboratorCandidate {
	out := make([]types.CollaboratorCandidate, 0, len(collabs))
	for _, c := range collabs {
		roles := make([]types.Role, 0, len(c.Roles))
		for _, r := range c.Roles {
			roles = append(roles, types.Role(r))
		}
		out = append(out, types.CollaboratorCandidate{
			Name:              c.Name,
			Roles:             roles,
			TopCollaborations: c.TopCollaborations,
		})
	}
	return out
}

// trimNonEmpty trims every string and drops the empty ones, preserving order.
func trimNonEmpty(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/crateful/linernotes/internal/breaker"
	"github.com/crateful/linernotes/internal/llm"
	"github.com/crateful/linernotes/pkg/types"
)

// GenerativeAdapter asks a language model for documented collaborators.
// First in the fallback order: fast and broad, but every name it returns
// is a candidate for the fake filter, never a fact.
type GenerativeAdapter struct {
	generator llm.TextGenerator
}

// NewGenerativeAdapter wraps a text generator. A nil generator is allowed
// and reports ErrAdapterUnavailable on every call, so a deployment without
// an LLM still runs the rest of the chain.
func NewGenerativeAdapter(generator llm.TextGenerator) *GenerativeAdapter {
	return &GenerativeAdapter{generator: generator}
}

// Name implements SourceAdapter.
func (a *GenerativeAdapter) Name() string {
	return types.SourceGenerative
}

// Collaborators asks for real, documented collaborators at factual
// temperature.
func (a *GenerativeAdapter) Collaborators(ctx context.Context, artistName string) ([]types.CollaboratorCandidate, error) {
	return a.collaborators(ctx, artistName, false)
}

// CreativeCollaborators runs the hallucination pass: plausible but
// unverified names at high temperature. Callers invoke it only when the
// user opted in and the whole chain came up empty.
func (a *GenerativeAdapter) CreativeCollaborators(ctx context.Context, artistName string) ([]types.CollaboratorCandidate, error) {
	return a.collaborators(ctx, artistName, true)
}

func (a *GenerativeAdapter) collaborators(ctx context.Context, artistName string, creative bool) ([]types.CollaboratorCandidate, error) {
	if a.generator == nil {
		return nil, fmt.Errorf("generative: no text generator configured: %w", ErrAdapterUnavailable)
	}

	var raw string
	var err error
	if creative {
		raw, err = a.generator.CompleteCreative(ctx, llm.CreativeCollaboratorPrompt(artistName))
	} else {
		raw, err = a.generator.Complete(ctx, llm.CollaboratorPrompt(artistName))
	}
	if err != nil {
		if errors.Is(err, breaker.ErrCircuitOpen) {
			return nil, fmt.Errorf("generative: %w: %v", ErrAdapterUnavailable, err)
		}
		return nil, fmt.Errorf("generative: completion failed: %w", err)
	}

	collabs, err := llm.ParseCollaboratorResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("generative: %w: %v", ErrMalformedOutput, err)
	}
	return llm.Candidates(collabs), nil
}

// ArtistRoles asks which roles the artist themselves holds. Used to seed
// the root node; a failure here is recoverable (the caller defaults the
// root to a plain artist).
func (a *GenerativeAdapter) ArtistRoles(ctx context.Context, artistName string) ([]types.Role, error) {
	if a.generator == nil {
		return nil, fmt.Errorf("generative: no text generator configured: %w", ErrAdapterUnavailable)
	}

	raw, err := a.generator.Complete(ctx, llm.ArtistRolesPrompt(artistName))
	if err != nil {
		if errors.Is(err, breaker.ErrCircuitOpen) {
			return nil, fmt.Errorf("generative: %w: %v", ErrAdapterUnavailable, err)
		}
		return nil, fmt.Errorf("generative: role detection failed: %w", err)
	}

	roles, err := llm.ParseRolesResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("generative: %w: %v", ErrMalformedOutput, err)
	}
	return roles, nil
}

// TopCollaborators names up to limit frequent collaborators, for branch
// expansion when a node carries no topCollaborations of its own. It reuses
// the factual collaborator query and keeps only the names.
func (a *GenerativeAdapter) TopCollaborators(ctx context.Context, artistName string, limit int) ([]string, error) {
	candidates, err := a.Collaborators(ctx, artistName)
	if err != nil {
		return nil, err
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}
	names := make([]string, 0, limit)
	for _, c := range candidates[:limit] {
		names = append(names, c.Name)
	}
	return names, nil
}

// CollaborationDetail asks for songs, albums, and the relationship between
// two artists.
func (a *GenerativeAdapter) CollaborationDetail(ctx context.Context, artist1, artist2 string) (*types.CollaborationDetail, error) {
	if a.generator == nil {
		return nil, fmt.Errorf("generative: no text generator configured: %w", ErrAdapterUnavailable)
	}

	raw, err := a.generator.Complete(ctx, llm.CollaborationDetailPrompt(artist1, artist2))
	if err != nil {
		if errors.Is(err, breaker.ErrCircuitOpen) {
			return nil, fmt.Errorf("generative: %w: %v", ErrAdapterUnavailable, err)
		}
		return nil, fmt.Errorf("generative: detail lookup failed: %w", err)
	}

	parsed, err := llm.ParseCollaborationDetailResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("generative: %w: %v", ErrMalformedOutput, err)
	}
	return &types.CollaborationDetail{
		Artist1:      artist1,
		Artist2:      artist2,
		Songs:        parsed.Songs,
		Albums:       parsed.Albums,
		Relationship: parsed.Relationship,
		Source:       a.Name(),
	}, nil
}

var (
	_ SourceAdapter = (*GenerativeAdapter)(nil)
	_ DetailSource  = (*GenerativeAdapter)(nil)
	_ RoleDetector  = (*GenerativeAdapter)(nil)
	_ TopSource     = (*GenerativeAdapter)(nil)
)

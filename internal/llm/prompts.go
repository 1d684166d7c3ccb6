// Package llm provides LLM integration for collaborator discovery, role
// detection, and collaboration summaries. It includes strict JSON-only prompt
// templates and response parsers that work with Ollama, OpenAI, and Anthropic
// models.
package llm

import (
	"fmt"
)

// roleDescriptions maps collaborator role IDs to brief descriptions for prompts.
var roleDescriptions = `- artist: Performing or featured artist (band member, duet partner, featured vocalist)
- producer: Production credit (producer, mixer, mastering or recording engineer)
- songwriter: Writing credit (composer, lyricist, co-writer)`

// CollaboratorPrompt generates a strict JSON-only prompt for factual
// collaborator discovery. The prompt instructs the LLM to list real,
// documented collaborators of the artist and return them as a JSON object
// with a "collaborators" array containing name, roles, and topCollaborations
// fields. Runs at near-zero temperature; invented names are explicitly
// forbidden.
//
// Parameters:
//   - artistName: The artist to list collaborators for
//
// Returns:
//   - A prompt string that will elicit JSON-only responses from the LLM
func CollaboratorPrompt(artistName string) string {
	return fmt.Sprintf(`TASK: List musicians who have actually collaborated with the artist %q.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks. NO ARRAY - MUST BE OBJECT.

ROLES (ONLY these 3):
%s

REQUIRED JSON STRUCTURE:
Your response MUST start with { and end with }
Your response MUST have a "collaborators" key with an array value
Each collaborator MUST have: name, roles, topCollaborations
topCollaborations lists that person's OWN frequent collaborators (up to 3 names, may be empty)

Example structure (EXACT FORMAT REQUIRED):
{
  "collaborators": [
    {"name":"Quincy Jones","roles":["producer"],"topCollaborations":["Frank Sinatra","Ray Charles"]},
    {"name":"Paul McCartney","roles":["artist","songwriter"],"topCollaborations":[]}
  ]
}

VALIDATION (STRICT):
1. Start with { - End with }
2. "collaborators" key must be present
3. "collaborators" value must be an array [...]
4. Each collaborator is an object with: name, roles, topCollaborations
5. No extra fields - only these 3 per collaborator
6. Roles EXACTLY: artist|producer|songwriter
7. ONLY real people with documented collaborations. NO invented names. NO placeholders like "Producer A".
8. If you are not certain a collaboration is real, leave that person out.
9. 5-15 collaborators. If none are known, return {"collaborators":[]}
10. No trailing commas. Valid JSON syntax.

ARTIST:
%s

RESPOND WITH ONLY THIS JSON STRUCTURE (nothing else):
{"collaborators":[{"name":"X","roles":["producer"],"topCollaborations":["Y"]}]}`, artistName, roleDescriptions, artistName)
}

// CreativeCollaboratorPrompt generates the prompt for the
// hallucination-tolerant second pass. Same JSON contract as
// CollaboratorPrompt, but the model is asked to speculate: plausible
// collaborators inferred from genre, era and scene are acceptable when no
// documented ones are known. Runs at high temperature; results are flagged
// hallucinated downstream.
func CreativeCollaboratorPrompt(artistName string) string {
	return fmt.Sprintf(`TASK: Imagine a plausible collaboration network for the artist %q.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks. NO ARRAY - MUST BE OBJECT.

This artist has no documented collaborators. Invent a PLAUSIBLE set based on
their genre, era, scene and style. Prefer real musicians who move in the same
circles; the collaborations themselves may be speculative.

ROLES (ONLY these 3):
%s

REQUIRED JSON STRUCTURE:
Your response MUST start with { and end with }
Your response MUST have a "collaborators" key with an array value
Each collaborator MUST have: name, roles, topCollaborations

Example structure (EXACT FORMAT REQUIRED):
{
  "collaborators": [
    {"name":"Flying Lotus","roles":["producer","artist"],"topCollaborations":["Thundercat"]},
    {"name":"Kamasi Washington","roles":["artist"],"topCollaborations":[]}
  ]
}

VALIDATION (STRICT):
1. Start with { - End with }
2. "collaborators" key must be present and be an array
3. Roles EXACTLY: artist|producer|songwriter
4. Use real musician names, NOT placeholders like "Artist A" or "Producer 1"
5. 5-10 collaborators
6. No trailing commas. Valid JSON syntax.

ARTIST:
%s

RESPOND WITH ONLY THIS JSON STRUCTURE (nothing else):
{"collaborators":[{"name":"X","roles":["artist"],"topCollaborations":["Y"]}]}`, artistName, roleDescriptions, artistName)
}

// ArtistRolesPrompt generates a strict JSON-only prompt asking which roles the
// artist themselves holds. Used to seed the root node of the network; the
// caller defaults to ["artist"] when the query fails or returns nothing usable.
func ArtistRolesPrompt(artistName string) string {
	return fmt.Sprintf(`TASK: Classify the primary roles of the musician %q.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

ROLES (ONLY these 3):
%s

RULES:
1. Return 1-3 roles, most prominent first
2. Roles EXACTLY: artist|producer|songwriter
3. No trailing commas. Valid JSON syntax.

RESPOND WITH ONLY THIS JSON STRUCTURE (nothing else):
{"roles":["artist","producer"]}`, artistName, roleDescriptions)
}

// CollaborationDetailPrompt generates a strict JSON-only prompt asking what
// two artists actually made together. The response feeds the collaboration
// detail endpoint: songs, albums, and a one-line relationship summary.
//
// Parameters:
//   - artist1: First artist of the pair
//   - artist2: Second artist of the pair
//
// Returns:
//   - A prompt string that will elicit JSON-only responses from the LLM
func CollaborationDetailPrompt(artist1, artist2 string) string {
	return fmt.Sprintf(`TASK: Describe the real recorded collaborations between %q and %q.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks. NO ARRAY - MUST BE OBJECT.

REQUIRED JSON STRUCTURE:
{
  "songs": ["song title", ...],
  "albums": ["album title", ...],
  "relationship": "one sentence describing how they worked together"
}

RULES:
1. ONLY songs and albums that actually exist and credit BOTH people
2. Up to 5 songs and 3 albums, most notable first
3. Empty arrays are fine; if they never worked together, return {"songs":[],"albums":[],"relationship":""}
4. relationship is ONE sentence, plain text, no markdown
5. No trailing commas. Valid JSON syntax.

RESPOND WITH ONLY THIS JSON STRUCTURE (nothing else):
{"songs":["X"],"albums":["Y"],"relationship":"..."}`, artist1, artist2)
}

package llm

import (
	"testing"
)

// ============================================================================
// FuzzParseCollaboratorResponse - fuzzes collaborator JSON parsing
// ============================================================================

func FuzzParseCollaboratorResponse(f *testing.F) {
	// Seed corpus with interesting inputs
	f.Add(`{"collaborators": [{"name": "Quincy Jones", "roles": ["producer"], "topCollaborations": ["Frank Sinatra"]}]}`)
	f.Add(``)
	f.Add(`{"collaborators": null}`)
	f.Add(`not json at all`)
	f.Add("```json\n{\"collaborators\": []}\n```")
	f.Add(`{"collaborators": []}`)
	f.Add(`{"collaborators": [{"name": "truncated"`)
	f.Add(`{"collaborators": [{"name": "", "roles": []}]}`)
	f.Add(`{"collaborators": [{"name": "x", "roles": ["artist"]}, {"name": "y", "roles": ["producer", "songwriter"]}]}`)
	f.Add(`{"collaborators": [{"name": "test", "roles": ["invalid_role_xyz"]}]}`)
	f.Add(`{"collaborators": [{"name": "José González", "roles": ["artist"]}]}`)
	f.Add(`{"collaborators": [{"name": "Notorious \"B.I.G.\"", "roles": ["artist"]}]}`)
	f.Add(`{"collaborators": [{"name": "a\nb", "roles": ["artist"]}]}`)
	f.Add(`{"nested": {"collaborators": [{"name": "test", "roles": ["artist"]}]}}`)
	f.Add(`{"collaborators": [{"name": "a", "roles": ["artist"]}, {"name": "b", "roles": ["bad"]}, {"name": "c", "roles": ["producer"]}]}`)
	f.Add(`{"collaborators": [{"name": "long_` + string(make([]byte, 1000)) + `", "roles": ["artist"]}]}`)
	f.Add(`{{{`)
	f.Add(`[{"name": "test", "roles": ["artist"]}]`)
	f.Add(`{"collaborators": [{"name": null, "roles": ["artist"]}]}`)
	f.Add(`{"collaborators": [{"name": "test", "roles": null}]}`)
	f.Add(`{"collaborators": [{"name": "test", "roles": "artist"}]}`)
	f.Add(`{"collaborators": [{"name": "test", "roles": ["artist"], "topCollaborations": null}]}`)
	f.Add(`{"collaborators": [{"name": "test", "roles": ["artist"], "topCollaborations": ["", " "]}]}`)
	f.Add("```\n{\"collaborators\": [{\"name\": \"test\", \"roles\": [\"artist\"]}]}\n```")
	f.Add(`Text before {"collaborators": [{"name": "test", "roles": ["artist"]}]} text after`)
	f.Add(`{"collaborators": [{"name": "test", "roles": ["artist"], "extra": "field", "another": 123}]}`)

	f.Fuzz(func(t *testing.T, input string) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("ParseCollaboratorResponse panicked on input %q: %v", input, r)
			}
		}()
		_, _ = ParseCollaboratorResponse(input)
	})
}

// ============================================================================
// FuzzParseRolesResponse - fuzzes role detection JSON parsing
// ============================================================================

func FuzzParseRolesResponse(f *testing.F) {
	// Seed corpus with interesting inputs
	f.Add(`{"roles": ["artist", "producer"]}`)
	f.Add(``)
	f.Add(`{"roles": null}`)
	f.Add(`not json at all`)
	f.Add(`{"roles": []}`)
	f.Add(`{"roles": ["UNKNOWN"]}`)
	f.Add(`{"roles": [""]}`)
	f.Add(`{"roles": "artist"}`)
	f.Add(`{"roles": [null]}`)
	f.Add(`{"roles": [123]}`)
	f.Add(`{{{`)
	f.Add("```json\n{\"roles\": [\"songwriter\"]}\n```")
	f.Add(`Sure: {"roles": ["artist"]} done`)

	f.Fuzz(func(t *testing.T, input string) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("ParseRolesResponse panicked on input %q: %v", input, r)
			}
		}()
		_, _ = ParseRolesResponse(input)
	})
}

// ============================================================================
// FuzzParseCollaborationDetailResponse - fuzzes collaboration detail parsing
// ============================================================================

func FuzzParseCollaborationDetailResponse(f *testing.F) {
	// Seed corpus with interesting inputs
	f.Add(`{"songs": ["Under Pressure"], "albums": [], "relationship": "Recorded one single together."}`)
	f.Add(``)
	f.Add(`{"songs": null, "albums": null, "relationship": null}`)
	f.Add(`not json at all`)
	f.Add(`{"songs": [], "albums": [], "relationship": ""}`)
	f.Add(`{"songs": [""], "albums": [" "], "relationship": "  "}`)
	f.Add(`{"songs": "one song"}`)
	f.Add(`{{{`)
	f.Add("```json\n{\"songs\": [\"X\"], \"albums\": [\"Y\"], \"relationship\": \"Z\"}\n```")
	f.Add(`Here you go: {"songs": ["X"], "albums": [], "relationship": "friends"} enjoy`)
	f.Add(`{"songs": ["` + string(make([]byte, 500)) + `"], "albums": [], "relationship": ""}`)

	f.Fuzz(func(t *testing.T, input string) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("ParseCollaborationDetailResponse panicked on input %q: %v", input, r)
			}
		}()
		_, _ = ParseCollaborationDetailResponse(input)
	})
}

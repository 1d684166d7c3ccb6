package sources

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/crateful/linernotes/internal/notify"
	"github.com/crateful/linernotes/pkg/types"
)

//go:embed curated.yaml
var curatedBuiltin []byte

// curatedFile is the YAML shape of the curated table. Top-level keys are
// artist names; values are that artist's verified collaborators.
type curatedFile struct {
	Artists map[string][]curatedEntry `yaml:"artists"`
}

type curatedEntry struct {
	Name              string   `yaml:"name"`
	Roles             []string `yaml:"roles"`
	TopCollaborations []string `yaml:"topCollaborations"`
}

// CuratedAdapter serves hand-verified collaborator lists for a small set
// of very well-known artists. Last in the fallback order: it exists so the
// flagship artists still produce a network with every external provider
// down.
//
// A built-in table ships embedded in the binary. An optional override file
// is overlaid on top of it and, when watching is enabled, reloaded on
// change without a restart.
type CuratedAdapter struct {
	mu      sync.RWMutex
	table   map[string][]types.CollaboratorCandidate
	path    string
	watcher *notify.FileWatcher
}

// NewCuratedAdapter loads the built-in table and overlays overridePath if
// given. A missing or invalid override file logs and leaves the built-in
// table serving; the file is picked up once it becomes readable.
func NewCuratedAdapter(overridePath string, watch bool) (*CuratedAdapter, error) {
	a := &CuratedAdapter{path: overridePath}

	builtin, err := parseCurated(curatedBuiltin)
	if err != nil {
		return nil, fmt.Errorf("curated: built-in table invalid: %w", err)
	}
	a.table = builtin

	if overridePath != "" {
		a.reload()
		if watch {
			a.watcher = notify.NewFileWatcher(overridePath, a.reload)
			if err := a.watcher.Start(); err != nil {
				return nil, fmt.Errorf("curated: watch %s: %w", overridePath, err)
			}
		}
	}
	return a, nil
}

// Name implements SourceAdapter.
func (a *CuratedAdapter) Name() string {
	return types.SourceCurated
}

// Collaborators looks the artist up in the table. The returned slice is a
// copy; the table itself is shared across requests.
func (a *CuratedAdapter) Collaborators(ctx context.Context, artistName string) ([]types.CollaboratorCandidate, error) {
	a.mu.RLock()
	entries := a.table[types.IdentityKey(artistName)]
	a.mu.RUnlock()

	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]types.CollaboratorCandidate, len(entries))
	for i, e := range entries {
		out[i] = types.CollaboratorCandidate{
			Name:              e.Name,
			Roles:             append([]types.Role(nil), e.Roles...),
			TopCollaborations: append([]string(nil), e.TopCollaborations...),
		}
	}
	return out, nil
}

// Artists returns the identity keys the table currently covers, for the
// stats endpoint.
func (a *CuratedAdapter) Artists() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.table))
	for k := range a.table {
		keys = append(keys, k)
	}
	return keys
}

// Close stops the override watcher, if any.
func (a *CuratedAdapter) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
}

// reload rebuilds the table from the built-in data plus the override file.
// Always recomputed from scratch so repeated edits cannot drift.
func (a *CuratedAdapter) reload() {
	table, err := parseCurated(curatedBuiltin)
	if err != nil {
		// Cannot happen after NewCuratedAdapter validated it once.
		log.Printf("curated: built-in table invalid: %v", err)
		return
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		log.Printf("curated: override %s not readable, using built-in table: %v", a.path, err)
	} else {
		override, err := parseCurated(data)
		if err != nil {
			log.Printf("curated: override %s invalid, using built-in table: %v", a.path, err)
		} else {
			for key, entries := range override {
				table[key] = entries
			}
			log.Printf("curated: loaded %d override artists from %s", len(override), a.path)
		}
	}

	a.mu.Lock()
	a.table = table
	a.mu.Unlock()
}

// parseCurated decodes a YAML table into lookup form. Artist keys are
// normalized through IdentityKey; unknown roles are dropped with a log,
// and an entry left without roles defaults to artist.
func parseCurated(data []byte) (map[string][]types.CollaboratorCandidate, error) {
	var file curatedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	table := make(map[string][]types.CollaboratorCandidate, len(file.Artists))
	for artist, entries := range file.Artists {
		key := types.IdentityKey(artist)
		if key == "" {
			continue
		}
		candidates := make([]types.CollaboratorCandidate, 0, len(entries))
		for _, e := range entries {
			if e.Name == "" {
				continue
			}
			roles := make([]types.Role, 0, len(e.Roles))
			for _, r := range e.Roles {
				role := types.Role(r)
				if !types.IsValidRole(role) {
					log.Printf("curated: unknown role %q on %s, dropped", r, e.Name)
					continue
				}
				roles = append(roles, role)
			}
			if len(roles) == 0 {
				roles = []types.Role{types.RoleArtist}
			}
			candidates = append(candidates, types.CollaboratorCandidate{
				Name:              e.Name,
				Roles:             roles,
				TopCollaborations: e.TopCollaborations,
			})
		}
		if len(candidates) > 0 {
			table[key] = candidates
		}
	}
	return table, nil
}

var _ SourceAdapter = (*CuratedAdapter)(nil)

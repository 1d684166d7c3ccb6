package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/crateful/linernotes/internal/breaker"
	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// MusicgraphConfig holds configuration for the music metadata adapter.
type MusicgraphConfig struct {
	BaseURL   string        // default: https://musicbrainz.org/ws/2
	UserAgent string        // required by the service's etiquette rules
	Timeout   time.Duration // default: 15s

	// RequestInterval is the minimum gap between requests. The public
	// service requires one second; self-hosted mirrors can run tighter.
	RequestInterval time.Duration
}

// MusicgraphAdapter queries a MusicBrainz-compatible metadata service for an
// artist's relation graph: direct artist-to-artist relations plus relations
// attached to the artist's recordings and works. Second in the fallback
// order, and the only adapter whose results are considered authoritative.
//
// The service allows roughly one request per second per client. The adapter
// owns that gate: all requests pass through a shared rate limiter, so one
// adapter instance must be shared by everything that talks to the service.
type MusicgraphAdapter struct {
	baseURL        string
	userAgent      string
	timeout        time.Duration
	client         *http.Client
	limiter        *rate.Limiter
	circuitBreaker *breaker.CircuitBreaker
	settings       storage.SettingsStore
}

// NewMusicgraphAdapter creates the adapter. The settings store supplies
// runtime-editable disambiguation overrides and may be nil.
func NewMusicgraphAdapter(cfg MusicgraphConfig, settings storage.SettingsStore) *MusicgraphAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://musicbrainz.org/ws/2"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "linernotes/1.0 (https://github.com/crateful/linernotes)"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RequestInterval == 0 {
		cfg.RequestInterval = time.Second
	}
	return &MusicgraphAdapter{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:      cfg.UserAgent,
		timeout:        cfg.Timeout,
		client:         &http.Client{Timeout: cfg.Timeout},
		limiter:        rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		circuitBreaker: breaker.NewCircuitBreaker(),
		settings:       settings,
	}
}

// Name implements SourceAdapter.
func (a *MusicgraphAdapter) Name() string {
	return types.SourceMusicgraph
}

// Collaborators resolves the artist and classifies every related party in
// its relation graph into a role. Returns nil, nil when the artist cannot
// be resolved, so the chain moves on.
func (a *MusicgraphAdapter) Collaborators(ctx context.Context, artistName string) ([]types.CollaboratorCandidate, error) {
	artist, err := a.resolveArtist(ctx, artistName)
	if err != nil {
		return nil, a.wrapErr("resolve failed", err)
	}
	if artist == nil {
		return nil, nil
	}

	set := newCandidateSet(artistName, artist.Name)

	// Direct artist-to-artist relations. A failure here means we have
	// nothing at all, so it is the adapter's failure.
	var lookup mgArtistLookup
	if err := a.getJSON(ctx, "/artist/"+artist.ID, url.Values{
		"inc": {"artist-rels"},
		"fmt": {"json"},
	}, &lookup); err != nil {
		return nil, a.wrapErr("artist lookup failed", err)
	}
	set.addRelations(lookup.Relations)

	// Relations attached to recordings (producer, mix, engineer credits
	// live here). Partial data beats none: log and keep going on failure.
	var recordings mgRecordingBrowse
	if err := a.getJSON(ctx, "/recording", url.Values{
		"artist": {artist.ID},
		"inc":    {"artist-rels"},
		"limit":  {"25"},
		"fmt":    {"json"},
	}, &recordings); err != nil {
		log.Printf("musicgraph: recording relations for %q: %v", artistName, err)
	} else {
		for _, rec := range recordings.Recordings {
			set.addRelations(rec.Relations)
		}
	}

	// Relations attached to works (composer and lyricist credits).
	var works mgWorkBrowse
	if err := a.getJSON(ctx, "/work", url.Values{
		"artist": {artist.ID},
		"inc":    {"artist-rels"},
		"limit":  {"25"},
		"fmt":    {"json"},
	}, &works); err != nil {
		log.Printf("musicgraph: work relations for %q: %v", artistName, err)
	} else {
		for _, w := range works.Works {
			set.addRelations(w.Relations)
		}
	}

	return set.candidates(), nil
}

// CollaborationDetail searches for recordings crediting both artists and
// reports shared songs and the albums they appear on.
func (a *MusicgraphAdapter) CollaborationDetail(ctx context.Context, artist1, artist2 string) (*types.CollaborationDetail, error) {
	query := fmt.Sprintf("artist:%s AND artist:%s", luceneQuote(artist1), luceneQuote(artist2))

	var result mgRecordingBrowse
	if err := a.getJSON(ctx, "/recording", url.Values{
		"query": {query},
		"limit": {"10"},
		"fmt":   {"json"},
	}, &result); err != nil {
		return nil, a.wrapErr("recording search failed", err)
	}

	detail := &types.CollaborationDetail{
		Artist1: artist1,
		Artist2: artist2,
		Source:  a.Name(),
	}
	seenSongs := map[string]struct{}{}
	seenAlbums := map[string]struct{}{}
	for _, rec := range result.Recordings {
		title := strings.TrimSpace(rec.Title)
		if title != "" && len(detail.Songs) < 5 {
			if _, dup := seenSongs[types.IdentityKey(title)]; !dup {
				seenSongs[types.IdentityKey(title)] = struct{}{}
				detail.Songs = append(detail.Songs, title)
			}
		}
		for _, rel := range rec.Releases {
			album := strings.TrimSpace(rel.Title)
			if album == "" || len(detail.Albums) >= 3 {
				continue
			}
			if _, dup := seenAlbums[types.IdentityKey(album)]; !dup {
				seenAlbums[types.IdentityKey(album)] = struct{}{}
				detail.Albums = append(detail.Albums, album)
			}
		}
	}
	return detail, nil
}

// resolveArtist searches the service for the name and picks a match: exact
// name first, case-insensitive second, then the hand-maintained
// disambiguation overrides. Returns nil when nothing matches.
func (a *MusicgraphAdapter) resolveArtist(ctx context.Context, name string) (*mgArtist, error) {
	var result mgSearchResponse
	if err := a.getJSON(ctx, "/artist", url.Values{
		"query": {"artist:" + luceneQuote(name)},
		"limit": {"10"},
		"fmt":   {"json"},
	}, &result); err != nil {
		return nil, err
	}

	for i := range result.Artists {
		if result.Artists[i].Name == name {
			return &result.Artists[i], nil
		}
	}
	for i := range result.Artists {
		if strings.EqualFold(result.Artists[i].Name, name) {
			return &result.Artists[i], nil
		}
	}
	if id := a.overrideFor(ctx, name); id != "" {
		return &mgArtist{ID: id, Name: name}, nil
	}
	return nil, nil
}

// overrideFor consults the runtime disambiguation settings for a pinned id.
func (a *MusicgraphAdapter) overrideFor(ctx context.Context, name string) string {
	if a.settings == nil {
		return ""
	}
	settings, err := a.settings.GetDisambiguationSettings(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("musicgraph: disambiguation settings unavailable: %v", err)
		}
		return ""
	}
	if id, ok := settings.OverrideFor(name); ok {
		return id
	}
	return ""
}

// getJSON performs one GET against the service through the circuit breaker
// and the rate gate, decoding the response into out.
func (a *MusicgraphAdapter) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	_, err := a.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return nil, a.get(ctx, endpoint, query, out)
	})
	return err
}

func (a *MusicgraphAdapter) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, a.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("musicgraph returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

func (a *MusicgraphAdapter) wrapErr(msg string, err error) error {
	if errors.Is(err, breaker.ErrCircuitOpen) {
		return fmt.Errorf("musicgraph: %w: %v", ErrAdapterUnavailable, err)
	}
	return fmt.Errorf("musicgraph: %s: %w", msg, err)
}

// luceneQuote wraps a value in quotes for the service's search syntax.
func luceneQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// ---- relation classification ----

// personalRelations are artist-to-artist relation types with no musical
// meaning; the parties are not collaborators.
var personalRelations = map[string]struct{}{
	"is person":     {},
	"married":       {},
	"sibling":       {},
	"parent":        {},
	"child":         {},
	"involved with": {},
}

// classifyRelation maps a relation type onto a role. Production-side types
// become producer, writing-side types become songwriter, and everything
// else (band membership, featured credits, remixes, plain collaboration)
// counts as artist.
func classifyRelation(relType string) types.Role {
	t := strings.ToLower(relType)
	switch {
	case strings.Contains(t, "producer"),
		strings.Contains(t, "mix"),
		strings.Contains(t, "master"),
		strings.Contains(t, "engineer"):
		return types.RoleProducer
	case strings.Contains(t, "composer"),
		strings.Contains(t, "lyricist"),
		strings.Contains(t, "writer"):
		return types.RoleSongwriter
	default:
		return types.RoleArtist
	}
}

// candidateSet accumulates relation targets, merging roles for repeated
// names and preserving first-seen order.
type candidateSet struct {
	selfKeys map[string]struct{}
	order    []string
	byKey    map[string]*types.CollaboratorCandidate
}

func newCandidateSet(selfNames ...string) *candidateSet {
	self := make(map[string]struct{}, len(selfNames))
	for _, n := range selfNames {
		self[types.IdentityKey(n)] = struct{}{}
	}
	return &candidateSet{
		selfKeys: self,
		byKey:    map[string]*types.CollaboratorCandidate{},
	}
}

func (s *candidateSet) addRelations(relations []mgRelation) {
	for _, rel := range relations {
		s.add(rel)
	}
}

func (s *candidateSet) add(rel mgRelation) {
	if rel.Artist == nil {
		return
	}
	if _, personal := personalRelations[strings.ToLower(rel.Type)]; personal {
		return
	}
	s.addNamed(rel.Artist.Name, classifyRelation(rel.Type))
}

// addNamed records one name/role mention, merging roles when the name was
// seen before. The set's own artist is never added.
func (s *candidateSet) addNamed(name string, role types.Role) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	key := types.IdentityKey(name)
	if _, self := s.selfKeys[key]; self {
		return
	}

	if existing, ok := s.byKey[key]; ok {
		for _, r := range existing.Roles {
			if r == role {
				return
			}
		}
		existing.Roles = append(existing.Roles, role)
		return
	}
	s.byKey[key] = &types.CollaboratorCandidate{
		Name:  name,
		Roles: []types.Role{role},
	}
	s.order = append(s.order, key)
}

func (s *candidateSet) len() int {
	return len(s.order)
}

func (s *candidateSet) candidates() []types.CollaboratorCandidate {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]types.CollaboratorCandidate, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.byKey[key])
	}
	return out
}

// ---- wire shapes ----

type mgArtist struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Score          int    `json:"score,omitempty"`
	Disambiguation string `json:"disambiguation,omitempty"`
}

type mgSearchResponse struct {
	Artists []mgArtist `json:"artists"`
}

type mgRelation struct {
	Type   string    `json:"type"`
	Artist *mgArtist `json:"artist"`
}

type mgArtistLookup struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Relations []mgRelation `json:"relations"`
}

type mgRelease struct {
	Title string `json:"title"`
}

type mgRecording struct {
	Title     string       `json:"title"`
	Relations []mgRelation `json:"relations"`
	Releases  []mgRelease  `json:"releases"`
}

type mgRecordingBrowse struct {
	Recordings []mgRecording `json:"recordings"`
}

type mgWork struct {
	Title     string       `json:"title"`
	Relations []mgRelation `json:"relations"`
}

type mgWorkBrowse struct {
	Works []mgWork `json:"works"`
}

var (
	_ SourceAdapter = (*MusicgraphAdapter)(nil)
	_ DetailSource  = (*MusicgraphAdapter)(nil)
)

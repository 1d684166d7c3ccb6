package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/crateful/linernotes/internal/breaker"
	"github.com/crateful/linernotes/pkg/types"
)

// encyclopediaMaxResults caps how many names the phrase scan may yield.
// Prose extraction is noisy; past the first handful the hit rate drops off
// sharply.
const encyclopediaMaxResults = 6

// EncyclopediaConfig holds configuration for the encyclopedia adapter.
type EncyclopediaConfig struct {
	BaseURL string        // default: https://en.wikipedia.org/w/api.php
	Timeout time.Duration // default: 15s
}

// EncyclopediaAdapter extracts collaborators from the artist's reference
// article intro by matching collaboration phrases ("produced by X",
// "co-written with Y", "featuring Z"). Third in the fallback order: prose
// is the least structured source, so this runs only after the generative
// and metadata adapters both came up empty.
type EncyclopediaAdapter struct {
	baseURL        string
	timeout        time.Duration
	client         *http.Client
	circuitBreaker *breaker.CircuitBreaker
}

// NewEncyclopediaAdapter creates the adapter.
func NewEncyclopediaAdapter(cfg EncyclopediaConfig) *EncyclopediaAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://en.wikipedia.org/w/api.php"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &EncyclopediaAdapter{
		baseURL:        cfg.BaseURL,
		timeout:        cfg.Timeout,
		client:         &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: breaker.NewCircuitBreaker(),
	}
}

// Name implements SourceAdapter.
func (a *EncyclopediaAdapter) Name() string {
	return types.SourceEncyclopedia
}

// Collaborators fetches the article intro and scans it for collaboration
// phrases. Returns nil, nil when no article exists.
func (a *EncyclopediaAdapter) Collaborators(ctx context.Context, artistName string) ([]types.CollaboratorCandidate, error) {
	extract, err := a.fetchIntro(ctx, artistName)
	if err != nil {
		return nil, a.wrapErr(err)
	}
	if extract == "" {
		return nil, nil
	}
	return extractCollaborators(artistName, extract), nil
}

// CollaborationDetail looks for a sentence in artist1's article that
// mentions artist2 and uses it as the relationship description. Articles
// rarely itemize songs, so Songs and Albums stay empty here.
func (a *EncyclopediaAdapter) CollaborationDetail(ctx context.Context, artist1, artist2 string) (*types.CollaborationDetail, error) {
	extract, err := a.fetchIntro(ctx, artist1)
	if err != nil {
		return nil, a.wrapErr(err)
	}

	detail := &types.CollaborationDetail{
		Artist1: artist1,
		Artist2: artist2,
		Source:  a.Name(),
	}
	if extract == "" {
		return detail, nil
	}

	needle := strings.ToLower(artist2)
	for _, sentence := range strings.Split(extract, ". ") {
		if strings.Contains(strings.ToLower(sentence), needle) {
			sentence = strings.TrimSpace(sentence)
			if !strings.HasSuffix(sentence, ".") {
				sentence += "."
			}
			detail.Relationship = sentence
			break
		}
	}
	return detail, nil
}

// fetchIntro returns the plain-text intro of the artist's article, or ""
// when no article exists.
func (a *EncyclopediaAdapter) fetchIntro(ctx context.Context, title string) (string, error) {
	query := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"redirects":   {"1"},
		"format":      {"json"},
		"titles":      {title},
	}

	result, err := a.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return a.get(ctx, query)
	})
	if err != nil {
		return "", err
	}

	response := result.(*wikiQueryResponse)
	for _, page := range response.Query.Pages {
		if page.Missing != nil {
			continue
		}
		return strings.TrimSpace(page.Extract), nil
	}
	return "", nil
}

func (a *EncyclopediaAdapter) get(ctx context.Context, query url.Values) (*wikiQueryResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, a.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("encyclopedia returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var response wikiQueryResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return &response, nil
}

func (a *EncyclopediaAdapter) wrapErr(err error) error {
	if errors.Is(err, breaker.ErrCircuitOpen) {
		return fmt.Errorf("encyclopedia: %w: %v", ErrAdapterUnavailable, err)
	}
	return fmt.Errorf("encyclopedia: %w", err)
}

// ---- phrase extraction ----

// namePattern matches one to four capitalized words, enough for stage
// names and full names. Periods stay out of the word class so a name at
// the end of a sentence cannot swallow the start of the next one; the
// cost is that dotted names ("M.I.A.") truncate and get filtered later.
const namePattern = `([A-Z][\p{L}'’-]*(?:\s+[A-Z][\p{L}'’-]*){0,3})`

// collaborationPhrases pair a trigger phrase with the role it implies.
// Scanned in order over the whole intro.
var collaborationPhrases = []struct {
	re   *regexp.Regexp
	role types.Role
}{
	{regexp.MustCompile(`(?:produced|co-produced)\s+(?:by|with)\s+` + namePattern), types.RoleProducer},
	{regexp.MustCompile(`(?:mixed|engineered|mastered)\s+by\s+` + namePattern), types.RoleProducer},
	{regexp.MustCompile(`(?:written|co-written|composed)\s+(?:by|with)\s+` + namePattern), types.RoleSongwriter},
	{regexp.MustCompile(`(?:featuring|feat\.)\s+` + namePattern), types.RoleArtist},
	{regexp.MustCompile(`(?:duets?|collaborated|collaborations?|worked)\s+with\s+` + namePattern), types.RoleArtist},
}

// encyclopediaStopWords are capitalized words that show up inside phrase
// captures but never name a person: nationalities, industry nouns, award
// names. A capture containing any of them is discarded whole.
var encyclopediaStopWords = map[string]struct{}{
	"american":   {},
	"british":    {},
	"english":    {},
	"canadian":   {},
	"australian": {},
	"french":     {},
	"german":     {},
	"swedish":    {},
	"grammy":     {},
	"billboard":  {},
	"records":    {},
	"music":      {},
	"album":      {},
	"albums":     {},
	"single":     {},
	"singles":    {},
	"song":       {},
	"songs":      {},
	"band":       {},
	"group":      {},
	"label":      {},
	"award":      {},
	"awards":     {},
	"critics":    {},
	"himself":    {},
	"herself":    {},
	"themselves": {},
	"various":    {},
	"numerous":   {},
	"several":    {},
	"other":      {},
	"others":     {},
}

// extractCollaborators scans intro text for collaboration phrases and
// classifies each captured name by the trigger that matched it. Names with
// digits or parentheses, stop-word captures, and the artist themselves are
// discarded; the rest dedupe case-insensitively, capped at
// encyclopediaMaxResults.
func extractCollaborators(artistName, extract string) []types.CollaboratorCandidate {
	set := newCandidateSet(artistName)
	for _, phrase := range collaborationPhrases {
		for _, match := range phrase.re.FindAllStringSubmatch(extract, -1) {
			name := strings.TrimSpace(match[1])
			if !plausiblePersonName(name) {
				continue
			}
			set.addNamed(name, phrase.role)
			if set.len() >= encyclopediaMaxResults {
				return set.candidates()
			}
		}
	}
	return set.candidates()
}

// plausiblePersonName rejects captures that cannot be a person.
func plausiblePersonName(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsAny(name, "0123456789()") {
		return false
	}
	for _, word := range strings.Fields(strings.ToLower(name)) {
		if _, stop := encyclopediaStopWords[strings.Trim(word, ".,")]; stop {
			return false
		}
	}
	return true
}

// ---- wire shapes ----

type wikiPage struct {
	PageID  int     `json:"pageid"`
	Title   string  `json:"title"`
	Extract string  `json:"extract"`
	Missing *string `json:"missing"`
}

type wikiQueryResponse struct {
	Query struct {
		Pages map[string]wikiPage `json:"pages"`
	} `json:"query"`
}

var (
	_ SourceAdapter = (*EncyclopediaAdapter)(nil)
	_ DetailSource  = (*EncyclopediaAdapter)(nil)
)

// Package metadata provides the best-effort lookups the enricher runs
// after a network is assembled: artist portrait URLs from an external
// image API and canonical profile ids from the identity store. Both
// lookups are LRU-cached because the same artists recur across builds.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/crateful/linernotes/internal/breaker"
	"github.com/crateful/linernotes/pkg/types"
)

// imageCacheSize bounds the portrait URL cache. Entries are tiny (name
// key, URL value) so the bound is about recurrence, not memory.
const imageCacheSize = 512

// ErrNoImage reports that the provider has no portrait for the artist.
// Cached like any other answer so repeat misses cost nothing.
var ErrNoImage = errors.New("no image available")

// ImageClientConfig holds configuration for the image client.
type ImageClientConfig struct {
	BaseURL string        // default: https://www.theaudiodb.com/api/v1/json
	APIKey  string        // default: "2" (the provider's free tier)
	Timeout time.Duration // default: 15s
}

// ImageClient fetches artist portrait URLs from a TheAudioDB-shaped
// API: GET {base}/{key}/search.php?s={artist} returning an "artists"
// array whose entries carry a thumb URL. Lookups are cached, including
// misses, because enrichment re-asks for the same ring artists on
// every build of a related network.
type ImageClient struct {
	baseURL        string
	apiKey         string
	timeout        time.Duration
	client         *http.Client
	circuitBreaker *breaker.CircuitBreaker
	cache          *lru.Cache[string, string]
}

// NewImageClient creates the client.
func NewImageClient(cfg ImageClientConfig) *ImageClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.theaudiodb.com/api/v1/json"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "2"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	cache, _ := lru.New[string, string](imageCacheSize)
	return &ImageClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		timeout:        cfg.Timeout,
		client:         &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: breaker.NewCircuitBreaker(),
		cache:          cache,
	}
}

// ArtistImageURL returns the portrait URL for the named artist, or
// ErrNoImage when the provider does not know them. Hits and misses are
// both cached; a cached miss returns ErrNoImage without a request.
func (c *ImageClient) ArtistImageURL(ctx context.Context, artistName string) (string, error) {
	key := types.IdentityKey(artistName)
	if key == "" {
		return "", ErrNoImage
	}
	if cached, ok := c.cache.Get(key); ok {
		if cached == "" {
			return "", ErrNoImage
		}
		return cached, nil
	}

	imageURL, err := c.search(ctx, artistName)
	if err != nil {
		if errors.Is(err, ErrNoImage) {
			// Negative entry: the provider answered, it just has nothing.
			c.cache.Add(key, "")
		}
		return "", err
	}
	c.cache.Add(key, imageURL)
	return imageURL, nil
}

func (c *ImageClient) search(ctx context.Context, artistName string) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.get(ctx, artistName)
	})
	if err != nil {
		if errors.Is(err, breaker.ErrCircuitOpen) {
			return "", fmt.Errorf("image provider circuit breaker open: %w", err)
		}
		return "", err
	}

	response := result.(*imageSearchResponse)
	for _, artist := range response.Artists {
		if url := firstNonEmpty(artist.Thumb, artist.Fanart, artist.Logo); url != "" {
			return url, nil
		}
	}
	return "", ErrNoImage
}

func (c *ImageClient) get(ctx context.Context, artistName string) (*imageSearchResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/%s/search.php?s=%s", c.baseURL, c.apiKey, url.QueryEscape(artistName))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var response imageSearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse image response: %w", err)
	}
	return &response, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// imageSearchResponse mirrors the provider's search payload. "artists"
// is JSON null when the name is unknown, which decodes to a nil slice.
type imageSearchResponse struct {
	Artists []imageArtist `json:"artists"`
}

type imageArtist struct {
	Name   string `json:"strArtist"`
	Thumb  string `json:"strArtistThumb"`
	Fanart string `json:"strArtistFanart"`
	Logo   string `json:"strArtistLogo"`
}

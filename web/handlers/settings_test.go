package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateful/linernotes/internal/services"
	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

type fakeSettingsStore struct {
	settings *types.DisambiguationSettings
}

func (s *fakeSettingsStore) GetDisambiguationSettings(ctx context.Context) (*types.DisambiguationSettings, error) {
	if s.settings == nil {
		return nil, storage.ErrNotFound
	}
	return s.settings, nil
}

func (s *fakeSettingsStore) SaveDisambiguationSettings(ctx context.Context, settings *types.DisambiguationSettings) error {
	s.settings = settings
	return nil
}

var _ storage.SettingsStore = (*fakeSettingsStore)(nil)

type fakeNetworkCache struct {
	invalidated []string
}

func (c *fakeNetworkCache) PutNetwork(ctx context.Context, artistID string, result *types.NetworkResult) error {
	return nil
}

func (c *fakeNetworkCache) GetNetwork(ctx context.Context, artistID string) (*types.NetworkResult, error) {
	return nil, storage.ErrNotFound
}

func (c *fakeNetworkCache) InvalidateNetwork(ctx context.Context, artistID string) error {
	c.invalidated = append(c.invalidated, artistID)
	return nil
}

func (c *fakeNetworkCache) NetworkStats(ctx context.Context) (*storage.NetworkCacheStats, error) {
	return &storage.NetworkCacheStats{}, nil
}

var _ storage.NetworkCache = (*fakeNetworkCache)(nil)

func newSettingsHandlers() (*SettingsHandlers, *fakeSettingsStore, *fakeNetworkCache) {
	store := &fakeSettingsStore{}
	cache := &fakeNetworkCache{}
	return NewSettingsHandlers(services.NewSettingsService(store, cache)), store, cache
}

func TestGetDisambiguations_EmptyBeforeFirstSave(t *testing.T) {
	h, _, _ := newSettingsHandlers()

	r := httptest.NewRequest(http.MethodGet, "/api/settings/disambiguations", nil)
	w := httptest.NewRecorder()
	h.GetDisambiguations(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var settings types.DisambiguationSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Empty(t, settings.Overrides)
	assert.Empty(t, settings.AmbiguousNames)
}

func TestUpdateDisambiguations_SavesAndReturnsSettings(t *testing.T) {
	h, store, _ := newSettingsHandlers()

	body := `{
		"overrides": [{"name": "John Williams", "canonical_id": "mbid-composer", "note": "the film composer"}],
		"ambiguous_names": ["Bill Evans"]
	}`
	r := httptest.NewRequest(http.MethodPut, "/api/settings/disambiguations", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.UpdateDisambiguations(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, store.settings)
	assert.Len(t, store.settings.Overrides, 1)
	assert.Equal(t, "mbid-composer", store.settings.Overrides[0].CanonicalID)
	assert.True(t, store.settings.IsAmbiguous("bill evans"), "ambiguity matching is case-insensitive")
	assert.WithinDuration(t, time.Now(), store.settings.UpdatedAt, time.Minute)
}

func TestUpdateDisambiguations_ChangedOverrideInvalidatesCache(t *testing.T) {
	h, _, cache := newSettingsHandlers()

	body := `{"overrides": [{"name": "John Williams", "canonical_id": "mbid-1"}], "ambiguous_names": []}`
	r := httptest.NewRequest(http.MethodPut, "/api/settings/disambiguations", strings.NewReader(body))
	h.UpdateDisambiguations(httptest.NewRecorder(), r)

	// Repointing the override must drop the network cached under the old id
	body = `{"overrides": [{"name": "John Williams", "canonical_id": "mbid-2"}], "ambiguous_names": []}`
	r = httptest.NewRequest(http.MethodPut, "/api/settings/disambiguations", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.UpdateDisambiguations(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, cache.invalidated)
}

func TestUpdateDisambiguations_RejectsBlankOverrideName(t *testing.T) {
	h, _, _ := newSettingsHandlers()

	body := `{"overrides": [{"name": " ", "canonical_id": "mbid-1"}], "ambiguous_names": []}`
	r := httptest.NewRequest(http.MethodPut, "/api/settings/disambiguations", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.UpdateDisambiguations(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateDisambiguations_RejectsMissingCanonicalID(t *testing.T) {
	h, _, _ := newSettingsHandlers()

	body := `{"overrides": [{"name": "John Williams", "canonical_id": ""}], "ambiguous_names": []}`
	r := httptest.NewRequest(http.MethodPut, "/api/settings/disambiguations", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.UpdateDisambiguations(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateDisambiguations_RejectsMalformedJSON(t *testing.T) {
	h, _, _ := newSettingsHandlers()

	r := httptest.NewRequest(http.MethodPut, "/api/settings/disambiguations", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.UpdateDisambiguations(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateful/linernotes/internal/config"
	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// ---------------------------------------------------------------------------
// In-memory fakes shared by the handler tests

type fakeBuilder struct {
	result      *types.NetworkResult
	sentinel    *types.NoCollaboratorsResult
	err         error
	lastName    string
	lastID      string
	lastAllow   bool
	invalidated []string
}

func (b *fakeBuilder) BuildNetwork(ctx context.Context, artistName string, allow bool) (*types.NetworkResult, *types.NoCollaboratorsResult, error) {
	b.lastName = artistName
	b.lastAllow = allow
	return b.result, b.sentinel, b.err
}

func (b *fakeBuilder) BuildNetworkByID(ctx context.Context, artistID string, allow bool) (*types.NetworkResult, *types.NoCollaboratorsResult, error) {
	b.lastID = artistID
	b.lastAllow = allow
	return b.result, b.sentinel, b.err
}

func (b *fakeBuilder) InvalidateNetwork(ctx context.Context, artistName string) error {
	b.invalidated = append(b.invalidated, artistName)
	return b.err
}

var _ NetworkGenerator = (*fakeBuilder)(nil)

type fakeArtistStore struct {
	byID     map[string]*types.ArtistIdentity
	countErr error
}

func newFakeArtistStore(artists ...*types.ArtistIdentity) *fakeArtistStore {
	s := &fakeArtistStore{byID: make(map[string]*types.ArtistIdentity)}
	for _, a := range artists {
		s.byID[a.ID] = a
	}
	return s
}

func (s *fakeArtistStore) Store(ctx context.Context, artist *types.ArtistIdentity) error {
	s.byID[artist.ID] = artist
	return nil
}

func (s *fakeArtistStore) Get(ctx context.Context, id string) (*types.ArtistIdentity, error) {
	if a, ok := s.byID[id]; ok {
		return a, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeArtistStore) GetByName(ctx context.Context, name string) (*types.ArtistIdentity, error) {
	key := types.IdentityKey(name)
	for _, a := range s.byID {
		if types.IdentityKey(a.Name) == key {
			return a, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeArtistStore) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.ArtistIdentity], error) {
	items := make([]types.ArtistIdentity, 0, len(s.byID))
	for _, a := range s.byID {
		items = append(items, *a)
	}
	return &storage.PaginatedResult[types.ArtistIdentity]{
		Items:    items,
		Total:    len(items),
		Page:     opts.Page,
		PageSize: opts.Limit,
	}, nil
}

func (s *fakeArtistStore) Delete(ctx context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

func (s *fakeArtistStore) Count(ctx context.Context) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return len(s.byID), nil
}

func (s *fakeArtistStore) Close() error { return nil }

var _ storage.ArtistStore = (*fakeArtistStore)(nil)

func testCfg() *config.Config {
	return &config.Config{
		Generation: config.GenerationConfig{DefaultAllowHallucinations: false},
	}
}

func smallNetwork() *types.NetworkResult {
	return &types.NetworkResult{
		Artist: types.ArtistIdentity{ID: "id-ada", Name: "Ada"},
		Nodes: []types.NetworkNode{
			{ID: "Ada", Name: "Ada", Roles: []types.Role{types.RoleArtist}, Weight: types.WeightPrimary},
			{ID: "Bob", Name: "Bob", Roles: []types.Role{types.RoleProducer}, Weight: types.WeightSecondary},
		},
		Links: []types.NetworkLink{{Source: "Ada", Target: "Bob"}},
		Meta:  types.NetworkMeta{Source: types.SourceGenerative},
	}
}

// requestWithPathValue builds a request with Go 1.22 path values populated
// the way the real mux would.
func requestWithPathValue(method, target string, pairs ...string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(pairs); i += 2 {
		r.SetPathValue(pairs[i], pairs[i+1])
	}
	return r
}

// ---------------------------------------------------------------------------
// Network endpoints

func TestGetNetwork_ServesDocument(t *testing.T) {
	builder := &fakeBuilder{result: smallNetwork()}
	h := NewAPIHandlers(builder, newFakeArtistStore(), testCfg())

	r := requestWithPathValue(http.MethodGet, "/api/network/Ada", "artistName", "Ada")
	w := httptest.NewRecorder()
	h.GetNetwork(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada", builder.lastName)
	assert.False(t, builder.lastAllow, "default config leaves hallucinations off")

	var result types.NetworkResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.Nodes, 2)
	assert.Len(t, result.Links, 1)
}

func TestGetNetwork_HallucinationFlagParsed(t *testing.T) {
	builder := &fakeBuilder{result: smallNetwork()}
	h := NewAPIHandlers(builder, newFakeArtistStore(), testCfg())

	r := requestWithPathValue(http.MethodGet, "/api/network/Ada?allowHallucinations=true", "artistName", "Ada")
	w := httptest.NewRecorder()
	h.GetNetwork(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, builder.lastAllow)
}

func TestGetNetwork_ConfigDefaultApplies(t *testing.T) {
	cfg := testCfg()
	cfg.Generation.DefaultAllowHallucinations = true
	builder := &fakeBuilder{result: smallNetwork()}
	h := NewAPIHandlers(builder, newFakeArtistStore(), cfg)

	r := requestWithPathValue(http.MethodGet, "/api/network/Ada", "artistName", "Ada")
	w := httptest.NewRecorder()
	h.GetNetwork(w, r)

	assert.True(t, builder.lastAllow, "absent query parameter falls back to the configured default")
}

func TestGetNetwork_SentinelServedAs200(t *testing.T) {
	builder := &fakeBuilder{sentinel: &types.NoCollaboratorsResult{
		NoCollaborators: true,
		ArtistName:      "Ada",
		SingleNode:      types.NetworkNode{ID: "Ada", Name: "Ada"},
	}}
	h := NewAPIHandlers(builder, newFakeArtistStore(), testCfg())

	r := requestWithPathValue(http.MethodGet, "/api/network/Ada", "artistName", "Ada")
	w := httptest.NewRecorder()
	h.GetNetwork(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var sentinel types.NoCollaboratorsResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sentinel))
	assert.True(t, sentinel.NoCollaborators)
	assert.Equal(t, "Ada", sentinel.SingleNode.Name)
}

func TestGetNetwork_UnknownArtistIs404(t *testing.T) {
	builder := &fakeBuilder{err: storage.ErrNotFound}
	h := NewAPIHandlers(builder, newFakeArtistStore(), testCfg())

	r := requestWithPathValue(http.MethodGet, "/api/network/Nobody", "artistName", "Nobody")
	w := httptest.NewRecorder()
	h.GetNetwork(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetNetwork_MissingNameIs400(t *testing.T) {
	h := NewAPIHandlers(&fakeBuilder{}, newFakeArtistStore(), testCfg())

	r := requestWithPathValue(http.MethodGet, "/api/network/", "artistName", "")
	w := httptest.NewRecorder()
	h.GetNetwork(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNetworkByID_ResolvesByCanonicalID(t *testing.T) {
	builder := &fakeBuilder{result: smallNetwork()}
	h := NewAPIHandlers(builder, newFakeArtistStore(), testCfg())

	r := requestWithPathValue(http.MethodGet, "/api/network-by-id/id-ada", "artistId", "id-ada")
	w := httptest.NewRecorder()
	h.GetNetworkByID(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id-ada", builder.lastID)
}

func TestDeleteNetwork_Invalidates(t *testing.T) {
	builder := &fakeBuilder{}
	h := NewAPIHandlers(builder, newFakeArtistStore(), testCfg())

	r := requestWithPathValue(http.MethodDelete, "/api/network/Ada", "artistName", "Ada")
	w := httptest.NewRecorder()
	h.DeleteNetwork(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"Ada"}, builder.invalidated)
}

func TestDeleteNetwork_UnknownArtistIs404(t *testing.T) {
	builder := &fakeBuilder{err: storage.ErrNotFound}
	h := NewAPIHandlers(builder, newFakeArtistStore(), testCfg())

	r := requestWithPathValue(http.MethodDelete, "/api/network/Nobody", "artistName", "Nobody")
	w := httptest.NewRecorder()
	h.DeleteNetwork(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ---------------------------------------------------------------------------
// Artist endpoints

func TestGetArtist_ServesRecord(t *testing.T) {
	store := newFakeArtistStore(&types.ArtistIdentity{ID: "id-ada", Name: "Ada"})
	h := NewAPIHandlers(&fakeBuilder{}, store, testCfg())

	r := requestWithPathValue(http.MethodGet, "/api/artists/id-ada", "id", "id-ada")
	w := httptest.NewRecorder()
	h.GetArtist(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var artist types.ArtistIdentity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &artist))
	assert.Equal(t, "Ada", artist.Name)
}

func TestGetArtist_UnknownIs404(t *testing.T) {
	h := NewAPIHandlers(&fakeBuilder{}, newFakeArtistStore(), testCfg())

	r := requestWithPathValue(http.MethodGet, "/api/artists/missing", "id", "missing")
	w := httptest.NewRecorder()
	h.GetArtist(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListArtists_Paginates(t *testing.T) {
	store := newFakeArtistStore(
		&types.ArtistIdentity{ID: "a", Name: "Ada"},
		&types.ArtistIdentity{ID: "b", Name: "Bob"},
	)
	h := NewAPIHandlers(&fakeBuilder{}, store, testCfg())

	r := httptest.NewRequest(http.MethodGet, "/api/artists?page=1&limit=10", nil)
	w := httptest.NewRecorder()
	h.ListArtists(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		Items []types.ArtistIdentity `json:"Items"`
		Total int                    `json:"Total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Total)
	assert.Len(t, result.Items, 2)
}

// ---------------------------------------------------------------------------
// Helpers

func TestParseBool(t *testing.T) {
	assert.True(t, parseBool("true", false))
	assert.False(t, parseBool("false", true))
	assert.True(t, parseBool("", true), "empty falls back to the default")
	assert.False(t, parseBool("not-a-bool", false))
}

package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// stubAdapter is a scriptable SourceAdapter for chain tests.
type stubAdapter struct {
	name       string
	candidates []types.CollaboratorCandidate
	err        error
	calls      int
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Collaborators(ctx context.Context, artistName string) ([]types.CollaboratorCandidate, error) {
	s.calls++
	return s.candidates, s.err
}

// stubDetailAdapter additionally answers detail lookups.
type stubDetailAdapter struct {
	stubAdapter
	detail    *types.CollaborationDetail
	detailErr error
}

func (s *stubDetailAdapter) CollaborationDetail(ctx context.Context, artist1, artist2 string) (*types.CollaborationDetail, error) {
	return s.detail, s.detailErr
}

func candidates(names ...string) []types.CollaboratorCandidate {
	out := make([]types.CollaboratorCandidate, len(names))
	for i, n := range names {
		out[i] = types.CollaboratorCandidate{Name: n, Roles: []types.Role{types.RoleArtist}}
	}
	return out
}

// ============================================================
// Fallback order
// ============================================================

func TestChainFirstAdapterWins(t *testing.T) {
	first := &stubAdapter{name: "first", candidates: candidates("Nile Rodgers")}
	second := &stubAdapter{name: "second", candidates: candidates("Should Not Appear")}

	chain := NewChain(NewFakeEntryFilter(), first, second)
	result, err := chain.Collaborators(context.Background(), "Daft Punk")
	if err != nil {
		t.Fatalf("Collaborators failed: %v", err)
	}

	if result.Source != "first" {
		t.Errorf("expected source first, got %s", result.Source)
	}
	if len(result.Candidates) != 1 || result.Candidates[0].Name != "Nile Rodgers" {
		t.Errorf("unexpected candidates: %+v", result.Candidates)
	}
	if second.calls != 0 {
		t.Error("second adapter was consulted although the first won")
	}
}

func TestChainFallsThroughEmptyAdapter(t *testing.T) {
	first := &stubAdapter{name: "first"}
	second := &stubAdapter{name: "second", candidates: candidates("Quincy Jones")}

	chain := NewChain(NewFakeEntryFilter(), first, second)
	result, err := chain.Collaborators(context.Background(), "Michael Jackson")
	if err != nil {
		t.Fatalf("Collaborators failed: %v", err)
	}

	if result.Source != "second" {
		t.Errorf("expected source second, got %s", result.Source)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("expected both adapters consulted once, got %d/%d", first.calls, second.calls)
	}
}

func TestChainFallsThroughFailingAdapter(t *testing.T) {
	first := &stubAdapter{name: "first", err: errors.New("connection refused")}
	second := &stubAdapter{name: "second", err: ErrAdapterUnavailable}
	third := &stubAdapter{name: "third", candidates: candidates("George Martin")}

	chain := NewChain(NewFakeEntryFilter(), first, second, third)
	result, err := chain.Collaborators(context.Background(), "The Beatles")
	if err != nil {
		t.Fatalf("errors must be recovered, got: %v", err)
	}

	if result.Source != "third" {
		t.Errorf("expected source third, got %s", result.Source)
	}
	if result.Failures() != 2 {
		t.Errorf("expected 2 recorded failures, got %d", result.Failures())
	}
}

// TestChainFilterDecidesTheWinner verifies that an adapter whose every
// candidate is rejected by the fake filter does not stop the fallback.
func TestChainFilterDecidesTheWinner(t *testing.T) {
	first := &stubAdapter{name: "first", candidates: candidates("Producer A", "Artist B", "unknown")}
	second := &stubAdapter{name: "second", candidates: candidates("Max Martin")}

	chain := NewChain(NewFakeEntryFilter(), first, second)
	result, err := chain.Collaborators(context.Background(), "Taylor Swift")
	if err != nil {
		t.Fatalf("Collaborators failed: %v", err)
	}

	if result.Source != "second" {
		t.Errorf("expected source second, got %s", result.Source)
	}
	if len(result.Probes) != 2 {
		t.Fatalf("expected 2 probes, got %d", len(result.Probes))
	}
	if result.Probes[0].Seen != 3 || result.Probes[0].Kept != 0 {
		t.Errorf("first probe seen/kept = %d/%d, want 3/0", result.Probes[0].Seen, result.Probes[0].Kept)
	}
}

func TestChainExhaustion(t *testing.T) {
	first := &stubAdapter{name: "first"}
	second := &stubAdapter{name: "second", err: errors.New("boom")}

	chain := NewChain(NewFakeEntryFilter(), first, second)
	result, err := chain.Collaborators(context.Background(), "Obscure Artist")
	if err != nil {
		t.Fatalf("Collaborators failed: %v", err)
	}

	if result.Source != types.SourceNone {
		t.Errorf("expected source %q, got %q", types.SourceNone, result.Source)
	}
	if len(result.Candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(result.Candidates))
	}
	if len(result.Probes) != 2 {
		t.Errorf("expected every adapter probed, got %d probes", len(result.Probes))
	}
}

func TestChainCancelledContext(t *testing.T) {
	first := &stubAdapter{name: "first", candidates: candidates("Nile Rodgers")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewChain(NewFakeEntryFilter(), first)
	_, err := chain.Collaborators(ctx, "Daft Punk")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if first.calls != 0 {
		t.Error("adapter consulted despite cancelled context")
	}
}

// ============================================================
// Detail fallback
// ============================================================

func TestChainDetailFirstNonEmptyWins(t *testing.T) {
	empty := &stubDetailAdapter{
		stubAdapter: stubAdapter{name: "first"},
		detail:      &types.CollaborationDetail{Artist1: "A", Artist2: "B", Source: "first"},
	}
	full := &stubDetailAdapter{
		stubAdapter: stubAdapter{name: "second"},
		detail: &types.CollaborationDetail{
			Artist1: "A", Artist2: "B",
			Songs:  []string{"Get Lucky"},
			Source: "second",
		},
	}

	chain := NewChain(NewFakeEntryFilter(), empty, full)
	detail, err := chain.Detail(context.Background(), "Daft Punk", "Nile Rodgers")
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if detail.Source != "second" {
		t.Errorf("expected detail from second, got %s", detail.Source)
	}
}

func TestChainDetailSkipsNonDetailAdapters(t *testing.T) {
	plain := &stubAdapter{name: "plain", candidates: candidates("Someone")}
	full := &stubDetailAdapter{
		stubAdapter: stubAdapter{name: "detail"},
		detail: &types.CollaborationDetail{
			Artist1: "A", Artist2: "B",
			Relationship: "Longtime producer.",
			Source:       "detail",
		},
	}

	chain := NewChain(NewFakeEntryFilter(), plain, full)
	detail, err := chain.Detail(context.Background(), "A", "B")
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if detail.Relationship != "Longtime producer." {
		t.Errorf("unexpected detail: %+v", detail)
	}
}

func TestChainDetailNotFound(t *testing.T) {
	failing := &stubDetailAdapter{
		stubAdapter: stubAdapter{name: "first"},
		detailErr:   errors.New("unreachable"),
	}
	empty := &stubDetailAdapter{
		stubAdapter: stubAdapter{name: "second"},
		detail:      &types.CollaborationDetail{Artist1: "A", Artist2: "B"},
	}

	chain := NewChain(NewFakeEntryFilter(), failing, empty)
	_, err := chain.Detail(context.Background(), "A", "B")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected storage.ErrNotFound, got %v", err)
	}
}

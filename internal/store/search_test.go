package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/domain"
)

func newLinearStore(t *testing.T) *ContentStore {
	t.Helper()
	s, err := Open(config.StoreConfig{
		Path:            ":memory:",
		PoolSize:        1,
		BusyTimeoutMS:   5000,
		VectorExtension: false,
	}, 4)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedEmbedded(t *testing.T, s *ContentStore, idx, pack string, vec []float32) {
	t.Helper()
	ctx := context.Background()
	if err := s.UpsertEntity(ctx, domain.KindSpells, testSpell(idx, pack, 1)); err != nil {
		t.Fatalf("UpsertEntity(%s) failed: %v", idx, err)
	}
	if vec != nil {
		if err := s.UpdateEmbedding(ctx, domain.KindSpells, idx, pack, vec); err != nil {
			t.Fatalf("UpdateEmbedding(%s) failed: %v", idx, err)
		}
	}
}

// Unit vectors at increasing angles from the query axis.
var (
	queryVec = []float32{1, 0, 0, 0}
	vecExact = []float32{1, 0, 0, 0}
	vecClose = []float32{0.95, 0.31225, 0, 0}
	vecMid   = []float32{0.70711, 0.70711, 0, 0}
	vecFarA  = []float32{0, 1, 0, 0}
	vecFarB  = []float32{0, 0, 1, 0}
)

func seedRankingFixture(t *testing.T, s *ContentStore) {
	t.Helper()
	seedEmbedded(t, s, "exact", "srd", vecExact)
	seedEmbedded(t, s, "close", "srd", vecClose)
	seedEmbedded(t, s, "mid", "srd", vecMid)
	seedEmbedded(t, s, "far-a", "srd", vecFarA)
	seedEmbedded(t, s, "far-b", "srd", vecFarB)
}

func assertOrder(t *testing.T, got []NNResult, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Index != w {
			t.Errorf("result %d = %q, want %q (full order: %v)", i, got[i].Index, w, indices(got))
		}
	}
}

func indices(rs []NNResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Index
	}
	return out
}

func TestNearestNeighborsVecPath(t *testing.T) {
	s := newTestStore(t)
	if !s.VecAvailable() {
		t.Skip("vector extension not available in this build")
	}
	seedRankingFixture(t, s)

	got, err := s.NearestNeighbors(context.Background(), domain.KindSpells, queryVec, 3, nil)
	if err != nil {
		t.Fatalf("NearestNeighbors failed: %v", err)
	}
	assertOrder(t, got, "exact", "close", "mid")

	if got[0].Distance > 1e-5 {
		t.Errorf("exact match distance = %v, want ~0", got[0].Distance)
	}
	// close: cos 0.95 between unit vectors -> L2 sqrt(0.1)
	if want := math.Sqrt(0.1); math.Abs(got[1].Distance-want) > 1e-3 {
		t.Errorf("close distance = %v, want ~%v", got[1].Distance, want)
	}
	if got[0].Name == "" || got[0].PackID != "srd" || len(got[0].Data) == 0 {
		t.Errorf("result row incomplete: %+v", got[0])
	}
}

func TestNearestNeighborsLinearScan(t *testing.T) {
	s := newLinearStore(t)
	if s.VecAvailable() {
		t.Fatal("linear store unexpectedly reports vector support")
	}
	seedRankingFixture(t, s)

	got, err := s.NearestNeighbors(context.Background(), domain.KindSpells, queryVec, 3, nil)
	if err != nil {
		t.Fatalf("NearestNeighbors failed: %v", err)
	}
	assertOrder(t, got, "exact", "close", "mid")

	// Orthogonal vectors land at sqrt(2) on the shared L2 scale.
	all, err := s.NearestNeighbors(context.Background(), domain.KindSpells, queryVec, 5, nil)
	if err != nil {
		t.Fatalf("NearestNeighbors failed: %v", err)
	}
	last := all[len(all)-1]
	if want := math.Sqrt2; math.Abs(last.Distance-want) > 1e-3 {
		t.Errorf("orthogonal distance = %v, want ~%v", last.Distance, want)
	}
	// Equal distances break ties by index ascending.
	assertOrder(t, all[3:], "far-a", "far-b")
}

func TestSearchPathsAgree(t *testing.T) {
	vecStore := newTestStore(t)
	if !vecStore.VecAvailable() {
		t.Skip("vector extension not available in this build")
	}
	linStore := newLinearStore(t)

	for _, s := range []*ContentStore{vecStore, linStore} {
		seedRankingFixture(t, s)
	}

	ctx := context.Background()
	fromVec, err := vecStore.NearestNeighbors(ctx, domain.KindSpells, queryVec, 5, nil)
	if err != nil {
		t.Fatalf("vec path failed: %v", err)
	}
	fromLin, err := linStore.NearestNeighbors(ctx, domain.KindSpells, queryVec, 5, nil)
	if err != nil {
		t.Fatalf("linear path failed: %v", err)
	}

	if len(fromVec) != len(fromLin) {
		t.Fatalf("result counts differ: vec %d, linear %d", len(fromVec), len(fromLin))
	}
	for i := range fromVec {
		if fromVec[i].Index != fromLin[i].Index {
			t.Errorf("rank %d differs: vec %q, linear %q", i, fromVec[i].Index, fromLin[i].Index)
		}
		if math.Abs(fromVec[i].Distance-fromLin[i].Distance) > 1e-3 {
			t.Errorf("rank %d distance differs: vec %v, linear %v",
				i, fromVec[i].Distance, fromLin[i].Distance)
		}
	}
}

func TestNearestNeighborsRejectsUnknownTable(t *testing.T) {
	s := newTestStore(t)
	_, err := s.NearestNeighbors(context.Background(), "spells; DROP TABLE spells", queryVec, 3, nil)
	var argErr *domain.InvalidArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected InvalidArgumentError, got %T: %v", err, err)
	}
}

func TestNearestNeighborsDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	_, err := s.NearestNeighbors(context.Background(), domain.KindSpells, []float32{1, 0}, 3, nil)
	var argErr *domain.InvalidArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected InvalidArgumentError, got %T: %v", err, err)
	}
}

func TestNearestNeighborsPackFilter(t *testing.T) {
	s := newTestStore(t)
	seedEmbedded(t, s, "fireball", "srd", vecExact)
	seedEmbedded(t, s, "fire-blast", "homebrew", vecClose)

	got, err := s.NearestNeighbors(context.Background(), domain.KindSpells, queryVec, 5,
		[]string{"homebrew"})
	if err != nil {
		t.Fatalf("NearestNeighbors failed: %v", err)
	}
	assertOrder(t, got, "fire-blast")
	if got[0].PackID != "homebrew" {
		t.Errorf("PackID = %q, want homebrew", got[0].PackID)
	}
}

func TestNearestNeighborsSkipsRowsWithoutEmbedding(t *testing.T) {
	for name, mk := range map[string]func(*testing.T) *ContentStore{
		"vec":    newTestStore,
		"linear": newLinearStore,
	} {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			seedEmbedded(t, s, "embedded-1", "srd", vecExact)
			seedEmbedded(t, s, "embedded-2", "srd", vecMid)
			seedEmbedded(t, s, "bare", "srd", nil)

			got, err := s.NearestNeighbors(context.Background(), domain.KindSpells, queryVec, 10, nil)
			if err != nil {
				t.Fatalf("NearestNeighbors failed: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d results, want 2 (row without embedding must not match)", len(got))
			}
			for _, r := range got {
				if r.Index == "bare" {
					t.Error("row without embedding returned")
				}
			}
		})
	}
}

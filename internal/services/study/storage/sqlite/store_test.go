package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/StanNowak/Surveys/internal/services/study/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "study.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotentAcrossRestarts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "study.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if err := reopened.Close(); err != nil {
		t.Fatalf("close reopened store: %v", err)
	}
}

func TestCreateAllocationFirstWriteWins(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	first := storage.Allocation{
		ParticipantID: "p-1",
		Stratum:       "novice",
		Pair:          [2]string{"storm", "wind"},
		CreatedAt:     now,
	}
	stored, err := store.CreateAllocation(context.Background(), first)
	if err != nil {
		t.Fatalf("create allocation: %v", err)
	}
	if stored.Pair != first.Pair {
		t.Fatalf("stored pair = %v, want %v", stored.Pair, first.Pair)
	}

	second := first
	second.Pair = [2]string{"persistent", "wet"}
	stored, err = store.CreateAllocation(context.Background(), second)
	if err != nil {
		t.Fatalf("create duplicate allocation: %v", err)
	}
	if stored.Pair != first.Pair {
		t.Fatalf("duplicate create pair = %v, want original %v", stored.Pair, first.Pair)
	}
}

func TestGetAllocationNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.GetAllocation(context.Background(), "absent", "novice")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing allocation error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestCreateAllocationConcurrentDuplicates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	const callers = 8
	pairs := [][2]string{
		{"storm", "wind"},
		{"storm", "persistent"},
		{"wind", "persistent"},
	}

	var wg sync.WaitGroup
	results := make([][2]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, err := store.CreateAllocation(context.Background(), storage.Allocation{
				ParticipantID: "p-race",
				Stratum:       "novice",
				Pair:          pairs[i%len(pairs)],
			})
			results[i] = stored.Pair
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d observed %v, caller 0 observed %v", i, results[i], results[0])
		}
	}

	stored, err := store.GetAllocation(context.Background(), "p-race", "novice")
	if err != nil {
		t.Fatalf("get allocation: %v", err)
	}
	if stored.Pair != results[0] {
		t.Fatalf("stored pair = %v, want %v", stored.Pair, results[0])
	}
}

func TestItemTypeCountDefaultsToZero(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	count, err := store.ItemTypeCount(context.Background(), "novice", "storm")
	if err != nil {
		t.Fatalf("item type count: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestIncrementItemTypeCount(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	for i := 0; i < 3; i++ {
		if err := store.IncrementItemTypeCount(context.Background(), "novice", "storm"); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	count, err := store.ItemTypeCount(context.Background(), "novice", "storm")
	if err != nil {
		t.Fatalf("item type count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	other, err := store.ItemTypeCount(context.Background(), "advanced", "storm")
	if err != nil {
		t.Fatalf("other stratum count: %v", err)
	}
	if other != 0 {
		t.Fatalf("other stratum count = %d, want 0", other)
	}
}

func TestIncrementPairCountCanonicalizes(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.IncrementPairCount(context.Background(), "novice", "wind", "storm"); err != nil {
		t.Fatalf("increment reversed pair: %v", err)
	}
	if err := store.IncrementPairCount(context.Background(), "novice", "storm", "wind"); err != nil {
		t.Fatalf("increment ordered pair: %v", err)
	}
	count, err := store.PairCount(context.Background(), "novice", "wind", "storm")
	if err != nil {
		t.Fatalf("pair count: %v", err)
	}
	if count != 2 {
		t.Fatalf("canonical pair count = %d, want 2", count)
	}
}

func TestIncrementTalliesUpdatesPairAndItems(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.IncrementTallies(context.Background(), "novice", [2]string{"wind", "storm"}); err != nil {
		t.Fatalf("increment tallies: %v", err)
	}

	pairCount, err := store.PairCount(context.Background(), "novice", "storm", "wind")
	if err != nil {
		t.Fatalf("pair count: %v", err)
	}
	if pairCount != 1 {
		t.Fatalf("pair count = %d, want 1", pairCount)
	}
	for _, itemType := range []string{"storm", "wind"} {
		count, err := store.ItemTypeCount(context.Background(), "novice", itemType)
		if err != nil {
			t.Fatalf("item type count %s: %v", itemType, err)
		}
		if count != 1 {
			t.Fatalf("count of %s = %d, want 1", itemType, count)
		}
	}
}

func TestIncrementTalliesConcurrentSameKey(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	const submissions = 10
	var wg sync.WaitGroup
	errs := make([]error, submissions)
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.IncrementTallies(context.Background(), "novice", [2]string{"storm", "wind"})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("submission %d: %v", i, err)
		}
	}

	count, err := store.ItemTypeCount(context.Background(), "novice", "storm")
	if err != nil {
		t.Fatalf("item type count: %v", err)
	}
	if count != submissions {
		t.Fatalf("count = %d, want %d", count, submissions)
	}
}

func TestSaveResponseGeneratesID(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.SaveResponse(context.Background(), storage.Response{
		ParticipantID: "p-1",
		SurveyID:      "avalanche_2025",
		Payload:       []byte(`{"answers":{"q1":"a"}}`),
		PanelMember:   true,
		BankVersion:   "3",
		ConfigVersion: "1",
	})
	if err != nil {
		t.Fatalf("save response: %v", err)
	}
}

func TestSaveResponseRequiresPayload(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.SaveResponse(context.Background(), storage.Response{
		ParticipantID: "p-1",
		SurveyID:      "avalanche_2025",
	})
	if err == nil {
		t.Fatal("expected missing payload error")
	}
}

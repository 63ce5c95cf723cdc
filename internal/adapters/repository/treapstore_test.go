package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/okian/leap/internal/domain/model"
)

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	updated, err := store.UpdateBest(ctx, "subject1", 42.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated {
		t.Error("expected update to succeed")
	}

	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	entry, err := store.Rank(ctx, "subject1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 {
		t.Errorf("expected rank 1, got %d", entry.Rank)
	}
	if entry.HeightCm != 42.5 {
		t.Errorf("expected height 42.5, got %f", entry.HeightCm)
	}

	entries, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].SubjectID != "subject1" {
		t.Errorf("expected subject1, got %s", entries[0].SubjectID)
	}
}

func TestTreapStore_BestOnlyImproves(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	if updated, _ := store.UpdateBest(ctx, "subject1", 40.0); !updated {
		t.Error("expected first update to succeed")
	}

	// Lower jumps never displace the best.
	if updated, _ := store.UpdateBest(ctx, "subject1", 31.0); updated {
		t.Error("expected update to fail for lower height")
	}
	entry, err := store.Rank(ctx, "subject1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.HeightCm != 40.0 {
		t.Errorf("expected height 40.0, got %f", entry.HeightCm)
	}

	// An equal jump is not an improvement either.
	if updated, _ := store.UpdateBest(ctx, "subject1", 40.0); updated {
		t.Error("expected update to fail for equal height")
	}

	if updated, _ := store.UpdateBest(ctx, "subject1", 55.5); !updated {
		t.Error("expected update to succeed for higher height")
	}
	entry, _ = store.Rank(ctx, "subject1")
	if entry.HeightCm != 55.5 {
		t.Errorf("expected height 55.5, got %f", entry.HeightCm)
	}
	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1 after repeated updates, got %d", count)
	}
}

func TestTreapStore_Metadata(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	updated, err := store.UpdateBestWithMeta(ctx, "subject1", 48.2, "meas-1", model.MethodVision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated {
		t.Error("expected update to succeed")
	}

	entry, err := store.Rank(ctx, "subject1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.MeasurementID != "meas-1" {
		t.Errorf("expected measurement meas-1, got %q", entry.MeasurementID)
	}
	if entry.Method != model.MethodVision {
		t.Errorf("expected method vision, got %q", entry.Method)
	}

	// Metadata follows the best jump.
	if _, err := store.UpdateBestWithMeta(ctx, "subject1", 61.0, "meas-2", model.MethodManual); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, _ = store.Rank(ctx, "subject1")
	if entry.MeasurementID != "meas-2" || entry.Method != model.MethodManual {
		t.Errorf("expected meta from improving jump, got %q/%q", entry.MeasurementID, entry.Method)
	}
}

func TestTreapStore_Ordering(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	heights := map[string]float64{
		"ana":   61.2,
		"bo":    33.4,
		"cleo":  77.0,
		"dante": 48.9,
	}
	for id, h := range heights {
		if _, err := store.UpdateBest(ctx, id, h); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantOrder := []string{"cleo", "ana", "dante", "bo"}
	if len(entries) != len(wantOrder) {
		t.Fatalf("expected %d entries, got %d", len(wantOrder), len(entries))
	}
	for i, want := range wantOrder {
		if entries[i].SubjectID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, entries[i].SubjectID)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d", i, i+1, entries[i].Rank)
		}
	}

	// TopN with a smaller limit returns a prefix.
	top2, err := store.TopN(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top2) != 2 || top2[0].SubjectID != "cleo" || top2[1].SubjectID != "ana" {
		t.Errorf("unexpected top2: %+v", top2)
	}
}

func TestTreapStore_TiesShareRank(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	store.UpdateBest(ctx, "zed", 50.0)
	store.UpdateBest(ctx, "amy", 50.0)
	store.UpdateBest(ctx, "kim", 44.0)

	entries, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Equal heights share a rank and tie-break by id asc.
	if entries[0].SubjectID != "amy" || entries[0].Rank != 1 {
		t.Errorf("expected amy at rank 1, got %s at %d", entries[0].SubjectID, entries[0].Rank)
	}
	if entries[1].SubjectID != "zed" || entries[1].Rank != 1 {
		t.Errorf("expected zed at rank 1, got %s at %d", entries[1].SubjectID, entries[1].Rank)
	}
	if entries[2].SubjectID != "kim" || entries[2].Rank != 2 {
		t.Errorf("expected kim at rank 2, got %s at %d", entries[2].SubjectID, entries[2].Rank)
	}

	entry, err := store.Rank(ctx, "zed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 {
		t.Errorf("expected shared rank 1 for zed, got %d", entry.Rank)
	}
}

func TestTreapStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	if _, err := store.Rank(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
	if _, err := store.TopN(ctx, -3); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestTreapStore_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	const (
		workers  = 8
		subjects = 50
		rounds   = 40
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < rounds; i++ {
				id := fmt.Sprintf("subject%d", rng.Intn(subjects))
				if _, err := store.UpdateBest(ctx, id, rng.Float64()*100); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()

	entries, err := store.TopN(ctx, subjects)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].HeightCm > entries[i-1].HeightCm {
			t.Errorf("leaderboard out of order at %d: %f > %f", i, entries[i].HeightCm, entries[i-1].HeightCm)
		}
	}
	if store.Count(ctx) != len(entries) {
		t.Errorf("count %d does not match entries %d", store.Count(ctx), len(entries))
	}
}

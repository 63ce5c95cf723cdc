package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

func seedStore(b *testing.B, store *TreapStore, n int) {
	b.Helper()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < n; i++ {
		if _, err := store.UpdateBest(ctx, fmt.Sprintf("subject%d", i), rng.Float64()*100); err != nil {
			b.Fatalf("seed: %v", err)
		}
	}
}

func BenchmarkTreapStore_UpdateBest(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()
	seedStore(b, store, 10_000)

	rng := rand.New(rand.NewSource(7))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("subject%d", rng.Intn(10_000))
		if _, err := store.UpdateBest(ctx, id, rng.Float64()*100); err != nil {
			b.Fatalf("update: %v", err)
		}
	}
}

func BenchmarkTreapStore_TopN(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()
	seedStore(b, store, 10_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.TopN(ctx, 100); err != nil {
			b.Fatalf("topn: %v", err)
		}
	}
}

func BenchmarkTreapStore_Rank(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()
	seedStore(b, store, 10_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Rank(ctx, fmt.Sprintf("subject%d", i%10_000)); err != nil {
			b.Fatalf("rank: %v", err)
		}
	}
}

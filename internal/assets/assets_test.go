package assets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/candle-writer/internal/logging"
)

type countingRepo struct {
	pairs []Pair
	calls int
	err   error
}

func (r *countingRepo) GetAll(ctx context.Context) ([]Pair, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.pairs, nil
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		repo := &countingRepo{pairs: []Pair{{ID: "BTCUSD", Accuracy: 3}}}
		svc := NewService(repo, logging.NewNop("test"))

		pair, ok := svc.GetAssetPair(ctx, "btcusd")
		require.True(t, ok)
		assert.Equal(t, "BTCUSD", pair.ID)
		assert.Equal(t, 3, pair.Accuracy)
	})

	t.Run("misses do not refetch within the refresh interval", func(t *testing.T) {
		repo := &countingRepo{pairs: []Pair{{ID: "BTCUSD"}}}
		svc := NewService(repo, logging.NewNop("test"))

		_, ok := svc.GetAssetPair(ctx, "nosuch")
		assert.False(t, ok)
		_, ok = svc.GetAssetPair(ctx, "nosuch")
		assert.False(t, ok)

		assert.Equal(t, 1, repo.calls)
	})

	t.Run("accuracy falls back to default", func(t *testing.T) {
		repo := &countingRepo{pairs: []Pair{{ID: "BTCUSD", Accuracy: 3}}}
		svc := NewService(repo, logging.NewNop("test"))

		assert.Equal(t, 3, svc.Accuracy(ctx, "BTCUSD"))
		assert.Equal(t, DefaultAccuracy, svc.Accuracy(ctx, "nosuch"))
	})

	t.Run("failed refresh serves stale data", func(t *testing.T) {
		repo := &countingRepo{pairs: []Pair{{ID: "BTCUSD"}}}
		svc := NewService(repo, logging.NewNop("test"))
		svc.refresh = 0 // allow refetching on every call

		_, ok := svc.GetAssetPair(ctx, "BTCUSD")
		require.True(t, ok)

		repo.err = errors.New("dictionary is down")
		assert.Len(t, svc.GetAllAssetPairs(ctx), 1) // refresh fails, snapshot kept
		pair, ok := svc.GetAssetPair(ctx, "BTCUSD")
		assert.True(t, ok)
		assert.Equal(t, "BTCUSD", pair.ID)
	})

	t.Run("get all returns the snapshot", func(t *testing.T) {
		repo := &countingRepo{pairs: []Pair{{ID: "A"}, {ID: "B"}}}
		svc := NewService(repo, logging.NewNop("test"))

		assert.Len(t, svc.GetAllAssetPairs(ctx), 2)
	})
}

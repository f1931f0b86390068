package chain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/candle-writer/internal/assets"
	"github.com/amirphl/candle-writer/internal/logging"
	"github.com/amirphl/candle-writer/internal/quote"
)

func newAssetService(pairs ...assets.Pair) *assets.Service {
	return assets.NewService(&assets.StaticRepository{Pairs: pairs}, logging.NewNop("test"))
}

func ext(asset string, pt quote.PriceType, price float64, ts time.Time) quote.Ext {
	return quote.Ext{
		Quote:     quote.Quote{AssetPair: asset, IsBuy: pt == quote.Bid, Price: price, Timestamp: ts},
		PriceType: pt,
	}
}

func TestMidStage(t *testing.T) {
	ctx := context.Background()
	dt := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	const asset = "btcusd"

	t.Run("basic generation", func(t *testing.T) {
		svc := newAssetService(assets.Pair{ID: asset, Accuracy: 5})
		c := New(NewMidStage(svc), NewCollector())

		out := c.Run(ctx, []quote.Ext{ext(asset, quote.Ask, 1, dt)})
		require.Len(t, out, 1)

		out = c.Run(ctx, []quote.Ext{ext(asset, quote.Bid, 2, dt.Add(time.Second))})
		require.Len(t, out, 2)

		// Mid comes first, then the triggering quote.
		assert.Equal(t, quote.Mid, out[0].PriceType)
		assert.Equal(t, 1.5, out[0].Price)
		assert.True(t, out[0].Timestamp.Equal(dt.Add(time.Second)))
		assert.Equal(t, quote.Bid, out[1].PriceType)
		assert.Equal(t, 2.0, out[1].Price)

		out = c.Run(ctx, []quote.Ext{ext(asset, quote.Ask, 3, dt.Add(2*time.Second))})
		require.Len(t, out, 2)
		assert.Equal(t, quote.Mid, out[0].PriceType)
		assert.Equal(t, 2.5, out[0].Price)
		assert.True(t, out[0].Timestamp.Equal(dt.Add(2*time.Second)))
	})

	t.Run("stale quote does not displace newer slot", func(t *testing.T) {
		svc := newAssetService(assets.Pair{ID: asset, Accuracy: 5})
		c := New(NewMidStage(svc), NewCollector())

		c.Run(ctx, []quote.Ext{ext(asset, quote.Ask, 1, dt)})
		c.Run(ctx, []quote.Ext{ext(asset, quote.Bid, 2, dt.Add(time.Second))})

		// An older ask must not affect the mid, though one is still emitted.
		out := c.Run(ctx, []quote.Ext{ext(asset, quote.Ask, 3, dt.Add(-time.Second))})
		require.Len(t, out, 2)
		assert.Equal(t, quote.Mid, out[0].PriceType)
		assert.Equal(t, 1.5, out[0].Price)
		assert.True(t, out[0].Timestamp.Equal(dt.Add(time.Second)))
	})

	t.Run("rounds to asset accuracy", func(t *testing.T) {
		svc := newAssetService(
			assets.Pair{ID: "btcusd", Accuracy: 5},
			assets.Pair{ID: "eurusd", Accuracy: 3},
		)
		c := New(NewMidStage(svc), NewCollector())

		out := c.Run(ctx, []quote.Ext{
			ext("btcusd", quote.Ask, 1.12345, dt),
			ext("btcusd", quote.Bid, 2.54321, dt.Add(time.Second)),
			ext("eurusd", quote.Ask, 1.1111, dt),
			ext("eurusd", quote.Bid, 2.2222, dt.Add(time.Second)),
		})
		require.Len(t, out, 6)

		var mids []quote.Ext
		for _, q := range out {
			if q.PriceType == quote.Mid {
				mids = append(mids, q)
			}
		}
		require.Len(t, mids, 2)
		assert.Equal(t, 1.83333, mids[0].Price)
		assert.Equal(t, 1.667, mids[1].Price)
	})

	t.Run("unknown asset gets default accuracy", func(t *testing.T) {
		svc := newAssetService()
		c := New(NewMidStage(svc), NewCollector())

		out := c.Run(ctx, []quote.Ext{
			ext("unknown", quote.Ask, 1.1234567, dt),
			ext("unknown", quote.Bid, 1.1234569, dt.Add(time.Second)),
		})
		require.Len(t, out, 3)
		assert.Equal(t, quote.Mid, out[1].PriceType)
		assert.Equal(t, 1.12346, out[1].Price)
	})

	t.Run("mid quotes bypass slot logic", func(t *testing.T) {
		svc := newAssetService(assets.Pair{ID: asset, Accuracy: 5})
		c := New(NewMidStage(svc), NewCollector())

		out := c.Run(ctx, []quote.Ext{ext(asset, quote.Mid, 7, dt)})
		require.Len(t, out, 1)
		assert.Equal(t, quote.Mid, out[0].PriceType)
		assert.Equal(t, 7.0, out[0].Price)
	})
}

func TestAssetFilter(t *testing.T) {
	ctx := context.Background()
	dt := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

	svc := newAssetService(
		assets.Pair{ID: "btcusd", Accuracy: 5},
		assets.Pair{ID: "oldusd", Accuracy: 5, IsDisabled: true},
	)
	log := logging.NewNop("test")
	c := New(
		NewAssetFilter(svc, log, logging.NewThrottle(time.Hour)),
		NewMidStage(svc),
		NewCollector(),
	)

	out := c.Run(ctx, []quote.Ext{
		ext("btcusd", quote.Ask, 1, dt),
		ext("oldusd", quote.Ask, 1, dt),
		ext("nosuch", quote.Ask, 1, dt),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "btcusd", out[0].AssetPair)
}

func TestCollectorOrderPreserved(t *testing.T) {
	ctx := context.Background()
	dt := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

	svc := newAssetService(assets.Pair{ID: "btcusd", Accuracy: 5})
	c := New(NewMidStage(svc), NewCollector())

	out := c.Run(ctx, []quote.Ext{
		ext("btcusd", quote.Ask, 1, dt),
		ext("btcusd", quote.Bid, 2, dt.Add(time.Second)),
		ext("btcusd", quote.Ask, 3, dt.Add(2*time.Second)),
	})

	require.Len(t, out, 5)
	want := []quote.PriceType{quote.Ask, quote.Mid, quote.Bid, quote.Mid, quote.Ask}
	for i, pt := range want {
		assert.Equal(t, pt, out[i].PriceType, "position %d", i)
	}
}

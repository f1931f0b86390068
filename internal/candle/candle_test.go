package candle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/candle-writer/internal/interval"
	"github.com/amirphl/candle-writer/internal/quote"
)

func makeQuote(asset string, pt quote.PriceType, price float64, ts time.Time) quote.Ext {
	return quote.Ext{
		Quote:     quote.Quote{AssetPair: asset, IsBuy: pt == quote.Bid, Price: price, Timestamp: ts},
		PriceType: pt,
	}
}

func TestGenerate(t *testing.T) {
	base := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("nil input yields empty result", func(t *testing.T) {
		result, err := Generate(nil, interval.Sec, quote.Bid)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("empty input yields empty result", func(t *testing.T) {
		result, err := Generate([]quote.Ext{}, interval.Minute, quote.Ask)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("buckets by second", func(t *testing.T) {
		quotes := []quote.Ext{
			makeQuote("btcusd", quote.Bid, 100, base),
			makeQuote("btcusd", quote.Bid, 101, base.Add(50*time.Millisecond)),
			makeQuote("btcusd", quote.Bid, 102, base.Add(5*time.Second)),
			makeQuote("btcusd", quote.Bid, 103, base.Add(15*time.Second)),
			makeQuote("btcusd", quote.Bid, 104, base.Add(15*time.Second+10*time.Millisecond)),
		}

		result, err := Generate(quotes, interval.Sec, quote.Bid)
		require.NoError(t, err)
		require.Len(t, result, 3)

		assert.True(t, result[0].Timestamp.Equal(base))
		assert.True(t, result[1].Timestamp.Equal(base.Add(5*time.Second)))
		assert.True(t, result[2].Timestamp.Equal(base.Add(15*time.Second)))

		// The 15s bucket holds two quotes: open from the first, close from
		// the last.
		assert.Equal(t, 103.0, result[2].Open)
		assert.Equal(t, 104.0, result[2].Close)
		assert.Equal(t, 104.0, result[2].High)
		assert.Equal(t, 103.0, result[2].Low)
	})

	t.Run("filters by price type", func(t *testing.T) {
		quotes := []quote.Ext{
			makeQuote("btcusd", quote.Bid, 100, base),
			makeQuote("btcusd", quote.Ask, 110, base),
			makeQuote("btcusd", quote.Mid, 105, base),
		}

		result, err := Generate(quotes, interval.Minute, quote.Ask)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, 110.0, result[0].Open)
		assert.Equal(t, quote.Ask, result[0].PriceType)
	})

	t.Run("ohlc invariant", func(t *testing.T) {
		quotes := []quote.Ext{
			makeQuote("btcusd", quote.Bid, 5, base),
			makeQuote("btcusd", quote.Bid, 9, base.Add(time.Second)),
			makeQuote("btcusd", quote.Bid, 2, base.Add(2*time.Second)),
			makeQuote("btcusd", quote.Bid, 7, base.Add(3*time.Second)),
		}

		result, err := Generate(quotes, interval.Minute, quote.Bid)
		require.NoError(t, err)
		require.Len(t, result, 1)

		c := result[0]
		assert.Equal(t, 5.0, c.Open)
		assert.Equal(t, 7.0, c.Close)
		assert.Equal(t, 9.0, c.High)
		assert.Equal(t, 2.0, c.Low)
		assert.LessOrEqual(t, c.Low, c.Open)
		assert.LessOrEqual(t, c.Low, c.Close)
		assert.GreaterOrEqual(t, c.High, c.Open)
		assert.GreaterOrEqual(t, c.High, c.Close)
	})

	t.Run("unsupported interval fails", func(t *testing.T) {
		quotes := []quote.Ext{makeQuote("btcusd", quote.Bid, 1, base)}
		_, err := Generate(quotes, interval.Interval(99), quote.Bid)
		assert.Error(t, err)
	})
}

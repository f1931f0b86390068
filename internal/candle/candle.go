// Package candle reduces enriched quote batches into OHLC buckets.
package candle

import (
	"time"

	"github.com/amirphl/candle-writer/internal/interval"
	"github.com/amirphl/candle-writer/internal/quote"
)

// Candle is one OHLC bucket for an asset pair, price type and interval.
type Candle struct {
	Timestamp time.Time // bucket start
	Open      float64
	High      float64
	Low       float64
	Close     float64
	AssetPair string
	PriceType quote.PriceType
	Interval  interval.Interval
}

// Generate reduces a time-ordered batch of enriched quotes into candles for
// one interval and price type. Quotes with a different price type are
// ignored. Buckets are produced in first-seen order.
//
// The caller is responsible for feeding quotes in time order; open and close
// reflect the first and last quote of a bucket in input order.
func Generate(quotes []quote.Ext, iv interval.Interval, pt quote.PriceType) ([]Candle, error) {
	result := []Candle{}
	if len(quotes) == 0 {
		return result, nil
	}

	index := make(map[time.Time]int)
	for _, q := range quotes {
		if q.PriceType != pt {
			continue
		}

		bucket, err := interval.RoundDown(q.Timestamp, iv)
		if err != nil {
			return nil, err
		}

		pos, ok := index[bucket]
		if !ok {
			index[bucket] = len(result)
			result = append(result, Candle{
				Timestamp: bucket,
				Open:      q.Price,
				High:      q.Price,
				Low:       q.Price,
				Close:     q.Price,
				AssetPair: q.AssetPair,
				PriceType: pt,
				Interval:  iv,
			})
			continue
		}

		c := &result[pos]
		c.Close = q.Price
		if q.Price > c.High {
			c.High = q.Price
		}
		if q.Price < c.Low {
			c.Low = q.Price
		}
	}

	return result, nil
}

package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/amirphl/candle-writer/internal/candle"
	"github.com/amirphl/candle-writer/internal/interval"
	"github.com/amirphl/candle-writer/internal/quote"
)

// CandleStore merges freshly generated candles into the row-compacting
// storage representation and reads them back.
type CandleStore struct {
	storage TableStorage
}

func NewCandleStore(storage TableStorage) *CandleStore {
	return &CandleStore{storage: storage}
}

// Merge folds candles for one asset/interval/price-type unit into storage.
// Candles are grouped per physical row; each row is fetched once, updated in
// memory and written back with a single upsert.
//
// When a tick already holds a stored item, open and close are overwritten by
// the incoming candle while high and low accumulate as running extrema. That
// asymmetry is long-standing storage behavior relied upon by readers; do not
// "fix" it to first-write-wins open semantics.
func (s *CandleStore) Merge(ctx context.Context, asset string, iv interval.Interval, pt quote.PriceType, candles []candle.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	pk := PartitionKey(asset, pt, iv)

	groups := make(map[string][]candle.Candle)
	order := []string{}
	for _, c := range candles {
		rk, err := RowKey(c.Timestamp, iv)
		if err != nil {
			return err
		}
		if _, ok := groups[rk]; !ok {
			order = append(order, rk)
		}
		groups[rk] = append(groups[rk], c)
	}

	for _, rk := range order {
		row, err := s.storage.GetRow(ctx, pk, rk)
		if err != nil {
			return fmt.Errorf("failed to fetch row %s/%s: %w", pk, rk, err)
		}
		if row == nil {
			row = &Row{PartitionKey: pk, RowKey: rk}
		}

		for _, c := range groups[rk] {
			tick, err := interval.Tick(c.Timestamp, iv)
			if err != nil {
				return err
			}

			if i := row.FindTick(tick); i >= 0 {
				item := &row.Items[i]
				item.Open = c.Open
				item.Close = c.Close
				if c.High > item.High {
					item.High = c.High
				}
				if c.Low < item.Low {
					item.Low = c.Low
				}
				continue
			}

			row.Items = append(row.Items, CandleItem{
				Open:  c.Open,
				Close: c.Close,
				High:  c.High,
				Low:   c.Low,
				Tick:  tick,
			})
		}

		if err := s.storage.UpsertRow(ctx, row); err != nil {
			return fmt.Errorf("failed to upsert row %s/%s: %w", pk, rk, err)
		}
	}

	return nil
}

// GetCandle returns the stored candle covering timestamp, or nil if absent.
func (s *CandleStore) GetCandle(ctx context.Context, asset string, iv interval.Interval, pt quote.PriceType, timestamp time.Time) (*candle.Candle, error) {
	pk := PartitionKey(asset, pt, iv)
	rk, err := RowKey(timestamp, iv)
	if err != nil {
		return nil, err
	}

	row, err := s.storage.GetRow(ctx, pk, rk)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch row %s/%s: %w", pk, rk, err)
	}
	if row == nil {
		return nil, nil
	}

	tick, err := interval.Tick(timestamp, iv)
	if err != nil {
		return nil, err
	}
	i := row.FindTick(tick)
	if i < 0 {
		return nil, nil
	}

	base, err := ParseRowKeyTime(rk)
	if err != nil {
		return nil, err
	}
	c, err := itemToCandle(row.Items[i], base, asset, iv, pt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCandles returns stored candles with from <= bucket start <= to, sorted
// ascending by bucket start.
func (s *CandleStore) GetCandles(ctx context.Context, asset string, iv interval.Interval, pt quote.PriceType, from, to time.Time) ([]candle.Candle, error) {
	pk := PartitionKey(asset, pt, iv)
	fromKey, err := RowKey(from, iv)
	if err != nil {
		return nil, err
	}
	toKey, err := RowKey(to, iv)
	if err != nil {
		return nil, err
	}

	rows, err := s.storage.ScanByPartition(ctx, pk, fromKey, toKey)
	if err != nil {
		return nil, fmt.Errorf("failed to scan partition %s: %w", pk, err)
	}

	result := []candle.Candle{}
	for _, row := range rows {
		base, err := ParseRowKeyTime(row.RowKey)
		if err != nil {
			return nil, err
		}
		for _, item := range row.Items {
			c, err := itemToCandle(item, base, asset, iv, pt)
			if err != nil {
				return nil, err
			}
			if c.Timestamp.Before(from) || c.Timestamp.After(to) {
				continue
			}
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

func itemToCandle(item CandleItem, base time.Time, asset string, iv interval.Interval, pt quote.PriceType) (candle.Candle, error) {
	ts, err := interval.AddTicks(base, item.Tick, iv)
	if err != nil {
		return candle.Candle{}, err
	}
	return candle.Candle{
		Timestamp: ts,
		Open:      item.Open,
		High:      item.High,
		Low:       item.Low,
		Close:     item.Close,
		AssetPair: asset,
		PriceType: pt,
		Interval:  iv,
	}, nil
}

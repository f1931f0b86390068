// Package store persists candles into a partitioned key-value layout that
// compacts many time buckets into few physical rows.
package store

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
)

// CandleItem is one bucket inside a stored row. Tick is the bucket's index
// within the row's coarser time span.
type CandleItem struct {
	Open  float64 `json:"O"`
	Close float64 `json:"C"`
	High  float64 `json:"H"`
	Low   float64 `json:"L"`
	Tick  int     `json:"T"`
}

// Row is the physical unit of storage. Items is unordered and holds at most
// one item per distinct tick.
type Row struct {
	PartitionKey string
	RowKey       string
	Items        []CandleItem
}

// FindTick returns the index of the item with the given tick, or -1.
func (r *Row) FindTick(tick int) int {
	for i := range r.Items {
		if r.Items[i].Tick == tick {
			return i
		}
	}
	return -1
}

// TableStorage is the contract of the external partitioned key-value store:
// point lookup, point upsert, partition-scoped range scan.
type TableStorage interface {
	// GetRow returns the row at (partitionKey, rowKey), or nil if absent.
	GetRow(ctx context.Context, partitionKey, rowKey string) (*Row, error)
	// UpsertRow writes the full row in one call.
	UpsertRow(ctx context.Context, row *Row) error
	// ScanByPartition returns rows of one partition with
	// fromRowKey <= RowKey <= toRowKey.
	ScanByPartition(ctx context.Context, partitionKey, fromRowKey, toRowKey string) ([]Row, error)
}

// NotConfiguredError marks configuration failures that must not be retried:
// the affected unit of work fails fast instead of burning the retry budget.
type NotConfiguredError struct {
	Reason string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("storage not configured: %s", e.Reason)
}

func encodeItems(items []CandleItem) ([]byte, error) {
	data, err := sonic.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode candle items: %w", err)
	}
	return data, nil
}

// decodeItems parses a row payload. Legacy single-candle-per-row payloads do
// not parse as an item list; they read as an empty row, not as an error.
func decodeItems(data []byte) []CandleItem {
	if len(data) == 0 {
		return nil
	}
	var items []CandleItem
	if err := sonic.Unmarshal(data, &items); err != nil {
		return nil
	}
	return items
}

package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryTableStorage is an in-process TableStorage used by tests and local
// runs.
type MemoryTableStorage struct {
	mu sync.RWMutex

	// partition key -> row key -> row
	partitions map[string]map[string]Row
}

func NewMemory() *MemoryTableStorage {
	return &MemoryTableStorage{
		partitions: make(map[string]map[string]Row),
	}
}

func (m *MemoryTableStorage) GetRow(ctx context.Context, partitionKey, rowKey string) (*Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.partitions[partitionKey][rowKey]
	if !ok {
		return nil, nil
	}
	copied := row
	copied.Items = append([]CandleItem(nil), row.Items...)
	return &copied, nil
}

func (m *MemoryTableStorage) UpsertRow(ctx context.Context, row *Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	part, ok := m.partitions[row.PartitionKey]
	if !ok {
		part = make(map[string]Row)
		m.partitions[row.PartitionKey] = part
	}

	copied := *row
	copied.Items = append([]CandleItem(nil), row.Items...)
	part[row.RowKey] = copied
	return nil
}

func (m *MemoryTableStorage) ScanByPartition(ctx context.Context, partitionKey, fromRowKey, toRowKey string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []Row
	for rk, row := range m.partitions[partitionKey] {
		if rk < fromRowKey || rk > toRowKey {
			continue
		}
		copied := row
		copied.Items = append([]CandleItem(nil), row.Items...)
		rows = append(rows, copied)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].RowKey < rows[j].RowKey })
	return rows, nil
}

// RowCount reports the number of physical rows in a partition. Test helper.
func (m *MemoryTableStorage) RowCount(partitionKey string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.partitions[partitionKey])
}

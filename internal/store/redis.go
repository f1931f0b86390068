package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTableStorage keeps each row under a string key and indexes row keys
// per partition in a sorted set so range scans stay cheap. All members carry
// score 0; ZRangeByLex gives lexicographic (= chronological) order.
type RedisTableStorage struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*RedisTableStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return &RedisTableStorage{client: client}, nil
}

func rowDataKey(partitionKey, rowKey string) string {
	return "candles:" + partitionKey + ":" + rowKey
}

func partitionIndexKey(partitionKey string) string {
	return "candles-index:" + partitionKey
}

func (r *RedisTableStorage) GetRow(ctx context.Context, partitionKey, rowKey string) (*Row, error) {
	data, err := r.client.Get(ctx, rowDataKey(partitionKey, rowKey)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch row %s/%s: %w", partitionKey, rowKey, err)
	}

	return &Row{
		PartitionKey: partitionKey,
		RowKey:       rowKey,
		Items:        decodeItems(data),
	}, nil
}

func (r *RedisTableStorage) UpsertRow(ctx context.Context, row *Row) error {
	data, err := encodeItems(row.Items)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, rowDataKey(row.PartitionKey, row.RowKey), data, 0)
	pipe.ZAdd(ctx, partitionIndexKey(row.PartitionKey), redis.Z{Score: 0, Member: row.RowKey})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert row %s/%s: %w", row.PartitionKey, row.RowKey, err)
	}
	return nil
}

func (r *RedisTableStorage) ScanByPartition(ctx context.Context, partitionKey, fromRowKey, toRowKey string) ([]Row, error) {
	rowKeys, err := r.client.ZRangeByLex(ctx, partitionIndexKey(partitionKey), &redis.ZRangeBy{
		Min: "[" + fromRowKey,
		Max: "[" + toRowKey,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan partition index %s: %w", partitionKey, err)
	}

	var result []Row
	for _, rk := range rowKeys {
		row, err := r.GetRow(ctx, partitionKey, rk)
		if err != nil {
			return nil, err
		}
		if row != nil {
			result = append(result, *row)
		}
	}
	return result, nil
}

// Close releases the client.
func (r *RedisTableStorage) Close() error {
	return r.client.Close()
}

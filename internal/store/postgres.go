package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresTableStorage keeps rows in a single table keyed by
// (partition_key, row_key) with the item list in a jsonb column.
type PostgresTableStorage struct {
	db *sql.DB
}

const candleRowsSchema = `
CREATE TABLE IF NOT EXISTS candle_rows (
	partition_key TEXT NOT NULL,
	row_key       TEXT NOT NULL,
	data          JSONB NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (partition_key, row_key)
);`

// NewPostgres opens a connection pool and ensures the schema exists.
func NewPostgres(connStr string, maxOpen, maxIdle int) (*PostgresTableStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.Exec(candleRowsSchema); err != nil {
		return nil, fmt.Errorf("failed to ensure candle_rows schema: %w", err)
	}

	return &PostgresTableStorage{db: db}, nil
}

func (p *PostgresTableStorage) GetRow(ctx context.Context, partitionKey, rowKey string) (*Row, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM candle_rows WHERE partition_key = $1 AND row_key = $2`,
		partitionKey, rowKey,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query row %s/%s: %w", partitionKey, rowKey, err)
	}

	return &Row{
		PartitionKey: partitionKey,
		RowKey:       rowKey,
		Items:        decodeItems(data),
	}, nil
}

func (p *PostgresTableStorage) UpsertRow(ctx context.Context, row *Row) error {
	data, err := encodeItems(row.Items)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO candle_rows (partition_key, row_key, data, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (partition_key, row_key)
		 DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		row.PartitionKey, row.RowKey, data,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert row %s/%s: %w", row.PartitionKey, row.RowKey, err)
	}
	return nil
}

func (p *PostgresTableStorage) ScanByPartition(ctx context.Context, partitionKey, fromRowKey, toRowKey string) ([]Row, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT row_key, data FROM candle_rows
		 WHERE partition_key = $1 AND row_key >= $2 AND row_key <= $3
		 ORDER BY row_key`,
		partitionKey, fromRowKey, toRowKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan partition %s: %w", partitionKey, err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var rk string
		var data []byte
		if err := rows.Scan(&rk, &data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, Row{
			PartitionKey: partitionKey,
			RowKey:       rk,
			Items:        decodeItems(data),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate partition %s: %w", partitionKey, err)
	}
	return result, nil
}

// Close releases the connection pool.
func (p *PostgresTableStorage) Close() error {
	return p.db.Close()
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/internal/domain/repository"
	pkgch "github.com/layiku/data-simulator/pkg/clickhouse"
)

// ClickHouseSink appends feed events to a MergeTree table. Scalar values go
// into the value column; structured values (order records) are carried as
// canonical JSON in the payload column with value left at zero.
type ClickHouseSink struct {
	client   *pkgch.Client
	database string
	table    string
}

// NewClickHouseSink creates a ClickHouse-backed point sink over client. The
// sink owns the client and closes it.
func NewClickHouseSink(client *pkgch.Client, database, table string) repository.PointSink {
	return &ClickHouseSink{client: client, database: database, table: table}
}

// SchemaStatements returns the idempotent DDL for the sink's table.
func SchemaStatements(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			ts DateTime64(3),
			object String,
			data_type String,
			value Float64,
			payload String
		) ENGINE = MergeTree ORDER BY (object, ts)`, database, table),
	}
}

// Init creates the database and table when they do not exist yet.
func (s *ClickHouseSink) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, SchemaStatements(s.database, s.table))
}

func (s *ClickHouseSink) StoreBatch(ctx context.Context, events []models.FeedEvent) error {
	if len(events) == 0 {
		return nil
	}
	// Multi-row VALUES keeps round-trips down; chunked so a huge drain does
	// not build an unbounded statement.
	const chunkSize = 2000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, ev := range events[start:end] {
			value, payload := encodeValue(ev.Value)
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args, ev.Timestamp, ev.Object, ev.DataType, value, payload)
		}

		q := fmt.Sprintf("INSERT INTO %s.%s (ts, object, data_type, value, payload) VALUES %s",
			s.database, s.table, strings.Join(values, ","))
		if _, err := s.client.DB().ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("clickhouse insert: %w", err)
		}
	}
	return nil
}

func encodeValue(v any) (float64, string) {
	if f, ok := models.Numeric(v); ok {
		return f, ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return 0, ""
	}
	return 0, string(b)
}

func (s *ClickHouseSink) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseSink) Close() error {
	return s.client.Close()
}

// File path: internal/sqlite/queries.go
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

// ErrUnknownTable is returned for table names outside the warehouse.
var ErrUnknownTable = errors.New("sqlite: unknown table")

// WarehouseTables lists the browsable tables in schema order.
var WarehouseTables = []string{"regions", "products", "customers", "sales", "invoices", "expenses"}

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// Query runs a statement and returns every row with its columns in select
// order.
// Callers are responsible for restricting statements to reads.
func (s *Store) Query(ctx context.Context, query string) ([]model.Row, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	out := []model.Row{}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(model.Row, len(columns))
		for i, name := range columns {
			row[i] = model.Field{Name: name, Value: normalizeValue(values[i])}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeValue(v any) any {
	switch value := v.(type) {
	case []byte:
		return string(value)
	case time.Time:
		value = value.UTC()
		if value.Hour() == 0 && value.Minute() == 0 && value.Second() == 0 && value.Nanosecond() == 0 {
			return value.Format(time.DateOnly)
		}
		return value.Format(time.DateTime)
	default:
		return v
	}
}

// Schema describes the warehouse tables through pragma_table_info.
func (s *Store) Schema(ctx context.Context) ([]TableSchema, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	tables := make([]TableSchema, 0, len(WarehouseTables))
	for _, name := range WarehouseTables {
		columns := []Column{}
		if err := s.db.SelectContext(ctx, &columns,
			`SELECT name, type, "notnull", pk > 0 AS pk FROM pragma_table_info(?) ORDER BY cid`, name); err != nil {
			return nil, fmt.Errorf("describe %s: %w", name, err)
		}
		tables = append(tables, TableSchema{Name: name, Columns: columns})
	}
	return tables, nil
}

// TableRows pages through one allowlisted table ordered by id. A
// non-positive limit means the default page size; larger limits are
// clamped.
func (s *Store) TableRows(ctx context.Context, table string, limit, offset int) (TablePage, error) {
	if err := s.ensureReady(); err != nil {
		return TablePage{}, err
	}
	name, ok := lookupTable(table)
	if !ok {
		return TablePage{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM `+name); err != nil {
		return TablePage{}, fmt.Errorf("count %s: %w", name, err)
	}
	rows, err := s.Query(ctx, fmt.Sprintf(`SELECT * FROM %s ORDER BY id LIMIT %d OFFSET %d`, name, limit, offset))
	if err != nil {
		return TablePage{}, fmt.Errorf("select %s: %w", name, err)
	}
	return TablePage{Table: name, Rows: rows, Total: total, Limit: limit, Offset: offset}, nil
}

// TableStats reports the row count of every warehouse table.
func (s *Store) TableStats(ctx context.Context) ([]TableStat, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	stats := make([]TableStat, 0, len(WarehouseTables))
	for _, name := range WarehouseTables {
		var count int64
		if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM `+name); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		stats = append(stats, TableStat{Name: name, Rows: count})
	}
	return stats, nil
}

func lookupTable(table string) (string, bool) {
	candidate := strings.ToLower(strings.TrimSpace(table))
	for _, name := range WarehouseTables {
		if name == candidate {
			return name, true
		}
	}
	return "", false
}

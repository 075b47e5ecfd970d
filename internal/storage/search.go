package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Row is one result row as an ordered column-name-to-value mapping.
type Row map[string]interface{}

// SearchRepository executes parameterized read queries against the feedback
// schema and returns generic row mappings for the search agent.
type SearchRepository struct {
	db DB
}

// NewSearchRepository creates a new search repository.
func NewSearchRepository(db DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Query runs a parameterized query and returns the ordered result rows.
func (r *SearchRepository) Query(ctx context.Context, query string, args []interface{}) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute search query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var results []Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// normalizeValue converts driver-specific scan types into plain Go values.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case sql.RawBytes:
		return string(val)
	default:
		return v
	}
}

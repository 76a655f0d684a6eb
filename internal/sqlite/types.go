// File path: internal/sqlite/types.go
package sqlite

import "github.com/nicodishanthj/Katral_insight/internal/kb/model"

// Column describes one column of a warehouse table.
type Column struct {
	Name       string `json:"name" db:"name"`
	Type       string `json:"type" db:"type"`
	NotNull    bool   `json:"not_null" db:"notnull"`
	PrimaryKey bool   `json:"primary_key" db:"pk"`
}

// TableSchema lists a table and its columns in declaration order.
type TableSchema struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// TableStat is the row count of one warehouse table.
type TableStat struct {
	Name string `json:"name"`
	Rows int64  `json:"row_count"`
}

// TablePage is a window of rows from one warehouse table.
type TablePage struct {
	Table  string      `json:"table"`
	Rows   []model.Row `json:"rows"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type messageRow struct {
	Role            string  `db:"role"`
	Content         string  `db:"content"`
	SQL             *string `db:"sql_query"`
	TableJSON       *string `db:"table_json"`
	RefinedQuestion *string `db:"refined_question"`
	CreatedAt       int64   `db:"created_at"`
}

type sessionRow struct {
	ID           string `db:"id"`
	Title        string `db:"title"`
	MessageCount int    `db:"message_count"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

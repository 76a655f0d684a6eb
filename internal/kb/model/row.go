// File path: internal/kb/model/row.go
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one column value of a result row.
type Field struct {
	Name  string
	Value any
}

// Row is one result row with its columns in select-list order. It encodes
// as a JSON object whose keys keep that order.
type Row []Field

// NewRow builds a row from alternating column names and values.
func NewRow(pairs ...any) Row {
	row := make(Row, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		row = append(row, Field{Name: fmt.Sprint(pairs[i]), Value: pairs[i+1]})
	}
	return row
}

// Get returns the value of the first column called name.
func (r Row) Get(name string) (any, bool) {
	for _, field := range r {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// Value is Get without the presence flag.
func (r Row) Value(name string) any {
	v, _ := r.Get(name)
	return v
}

// Set replaces the value of column name, appending the column when absent.
func (r *Row) Set(name string, value any) {
	for i := range *r {
		if (*r)[i].Name == name {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Name: name, Value: value})
}

// Columns lists the column names in order.
func (r Row) Columns() []string {
	names := make([]string, len(r))
	for i, field := range r {
		names[i] = field.Name
	}
	return names
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Row) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row: expected object, got %v", tok)
	}
	row := Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("row: expected column name, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("row: column %s: %w", name, err)
		}
		row = append(row, Field{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = row
	return nil
}

// CloneRows copies the row slice and each row so callers cannot mutate
// stored results.
func CloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = append(Row(nil), row...)
		if out[i] == nil {
			out[i] = Row{}
		}
	}
	return out
}

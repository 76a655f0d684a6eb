// File path: internal/kb/model/row_test.go
package model

import (
	"encoding/json"
	"testing"
)

func TestRowMarshalKeepsColumnOrder(t *testing.T) {
	rows := []Row{NewRow("total_sales", 100, "region", "Dhaka")}
	data, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(data), `[{"total_sales":100,"region":"Dhaka"}]`; got != want {
		t.Fatalf("unexpected json: got %s want %s", got, want)
	}
	empty, err := json.Marshal(Row{})
	if err != nil {
		t.Fatalf("marshal empty: %v", err)
	}
	if string(empty) != "{}" {
		t.Fatalf("empty row encoded as %s", empty)
	}
}

func TestRowUnmarshalKeepsColumnOrder(t *testing.T) {
	var rows []Row
	if err := json.Unmarshal([]byte(`[{"zone":"north","amount":12.5,"note":null},null]`), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	cols := rows[0].Columns()
	if len(cols) != 3 || cols[0] != "zone" || cols[1] != "amount" || cols[2] != "note" {
		t.Fatalf("unexpected columns %v", cols)
	}
	if v := rows[0].Value("amount"); v != 12.5 {
		t.Fatalf("unexpected amount %v", v)
	}
	if v, ok := rows[0].Get("note"); !ok || v != nil {
		t.Fatalf("expected null note, got %v (%v)", v, ok)
	}
	if _, ok := rows[0].Get("missing"); ok {
		t.Fatalf("missing column reported present")
	}
	if err := json.Unmarshal([]byte(`[1]`), &rows); err == nil {
		t.Fatalf("expected error for a non-object row")
	}
}

func TestRowSetAndClone(t *testing.T) {
	row := NewRow("a", 1)
	row.Set("b", 2)
	row.Set("a", 3)
	if row.Value("a") != 3 || row.Value("b") != 2 || len(row) != 2 {
		t.Fatalf("unexpected row %v", row)
	}
	rows := []Row{row}
	cloned := CloneRows(rows)
	cloned[0].Set("a", 99)
	if rows[0].Value("a") != 3 {
		t.Fatalf("clone shares storage with the original")
	}
	if CloneRows(nil) != nil {
		t.Fatalf("nil rows must stay nil")
	}
}

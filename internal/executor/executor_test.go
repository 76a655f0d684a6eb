// File path: internal/executor/executor_test.go
package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

type recordingBackend struct {
	queries []string
	rows    []model.Row
	err     error
}

func (b *recordingBackend) Query(_ context.Context, query string) ([]model.Row, error) {
	b.queries = append(b.queries, query)
	return b.rows, b.err
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		query string
		ok    bool
	}{
		{"plain select", "SELECT SUM(amount) FROM sales", true},
		{"lower case with padding", "   select id from regions  ", true},
		{"with clause", "WITH t AS (SELECT 1) SELECT * FROM t", false},
		{"update", "UPDATE sales SET amount = 0", false},
		{"stacked drop", "SELECT 1; DROP TABLE sales", false},
		{"delete in subquery", "select * from sales where id in (delete from x)", false},
		{"exec", "SELECT exec_time FROM jobs", false},
		{"keyword inside identifier", "SELECT created_at FROM sales", false},
		{"empty", "   ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.query)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
		})
	}
}

func TestExecuteRejectsBeforeBackend(t *testing.T) {
	backend := &recordingBackend{}
	_, err := New(backend).Execute(context.Background(), "DROP TABLE sales")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, backend.queries)
}

func TestExecuteWrapsBackendFailure(t *testing.T) {
	cause := errors.New("no such table: salez")
	backend := &recordingBackend{err: cause}
	rows, err := New(backend).Execute(context.Background(), "SELECT * FROM salez")
	assert.Nil(t, rows)
	var eerr *ExecutionError
	require.True(t, errors.As(err, &eerr))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, []string{"SELECT * FROM salez"}, backend.queries)
}

func TestExecuteReturnsRows(t *testing.T) {
	backend := &recordingBackend{rows: []model.Row{model.NewRow("total_sales", 1500.0)}}
	rows, err := New(backend).Execute(context.Background(), "  SELECT SUM(amount) as total_sales FROM sales\n")
	require.NoError(t, err)
	assert.Equal(t, []model.Row{model.NewRow("total_sales", 1500.0)}, rows)
	assert.Equal(t, "SELECT SUM(amount) as total_sales FROM sales", backend.queries[0])

	empty, err := New(&recordingBackend{}).Execute(context.Background(), "SELECT 1 WHERE 1 = 0")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

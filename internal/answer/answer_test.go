// File path: internal/answer/answer_test.go
package answer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

type stubTransport struct {
	response    string
	user        string
	system      string
	temperature float64
}

func (s *stubTransport) Generate(_ context.Context, system, user string, temperature float64) (string, error) {
	s.system, s.user, s.temperature = system, user, temperature
	return s.response, nil
}

func TestLLMComposerSendsRowsAsJSON(t *testing.T) {
	transport := &stubTransport{response: "  Total sales reached 1,23,456.00 BDT.\n"}
	rows := []model.Row{model.NewRow("total_sales", 123456.0, "region", "Dhaka")}

	text, err := NewLLMComposer(transport).Compose(context.Background(), "Total completed sales", rows)
	require.NoError(t, err)
	assert.Equal(t, "  Total sales reached 1,23,456.00 BDT.\n", text, "raw text is returned unmodified")
	assert.Equal(t, 0.4, transport.temperature)
	assert.Contains(t, transport.user, "QUESTION: Total completed sales")
	assert.Contains(t, transport.user, `"total_sales": 123456`)
	assert.Less(t, strings.Index(transport.user, "total_sales"), strings.Index(transport.user, "region"), "columns keep select order")
	assert.Contains(t, transport.system, "BDT")
	assert.Contains(t, transport.system, "Never show SQL")
}

func TestLLMComposerEncodesEmptyRows(t *testing.T) {
	transport := &stubTransport{response: "No sales yet."}
	_, err := NewLLMComposer(transport).Compose(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Contains(t, transport.user, "DATA:\n[]")
}

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		0:          "0.00",
		12:         "12.00",
		999.999:    "1,000.00",
		1234.5:     "1,234.50",
		12345678.9: "12,345,678.90",
		-98765.4:   "-98,765.40",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatAmount(in), "amount %v", in)
	}
}

func TestPlain(t *testing.T) {
	assert.Equal(t, "No data found for this query.", Plain(nil))
	assert.Equal(t, "No data found for this query.", Plain([]model.Row{model.NewRow("total_sales", nil)}))
	assert.Equal(t, "The result is: 12,345.00 BDT", Plain([]model.Row{model.NewRow("total_sales", 12345.0)}))
	assert.Equal(t, "The result is: 30.00 BDT", Plain([]model.Row{model.NewRow("order_count", int64(30))}))
	assert.Equal(t, "The result is: Dhaka", Plain([]model.Row{model.NewRow("region", "Dhaka")}))

	rows := []model.Row{
		model.NewRow("total_sales", 1500.5, "region", "Dhaka"),
		model.NewRow("total_sales", 900.0, "region", "Sylhet"),
	}
	assert.Equal(t, "Results:\n- total_sales: 1500.5, region: Dhaka\n- total_sales: 900, region: Sylhet", Plain(rows))

	many := make([]model.Row, 8)
	for i := range many {
		many[i] = model.NewRow("id", int64(i))
	}
	out := Plain(many)
	assert.Equal(t, 5, strings.Count(out, "\n- "))
}

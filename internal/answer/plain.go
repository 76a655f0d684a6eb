// File path: internal/answer/plain.go
package answer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

const (
	noData       = "No data found for this query."
	maxPlainRows = 5
)

// PlainComposer formats rows without a language model.
type PlainComposer struct{}

var _ Composer = PlainComposer{}

func (PlainComposer) Compose(_ context.Context, _ string, rows []model.Row) (string, error) {
	return Plain(rows), nil
}

// Plain renders a single value as "The result is: ..." (amounts with two
// decimals and BDT) and anything wider as a bullet list of at most five rows
// with columns in select order.
func Plain(rows []model.Row) string {
	if len(rows) == 0 {
		return noData
	}
	if len(rows) == 1 && len(rows[0]) == 1 {
		v := rows[0][0].Value
		if v == nil {
			return noData
		}
		if amount, ok := toFloat(v); ok {
			return "The result is: " + FormatAmount(amount) + " BDT"
		}
		return fmt.Sprintf("The result is: %v", v)
	}
	var sb strings.Builder
	sb.WriteString("Results:")
	for i, row := range rows {
		if i == maxPlainRows {
			break
		}
		parts := make([]string, 0, len(row))
		for _, field := range row {
			parts = append(parts, field.Name+": "+formatValue(field.Value))
		}
		sb.WriteString("\n- ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	return sb.String()
}

// FormatAmount renders v with two decimals and comma thousands separators.
func FormatAmount(v float64) string {
	raw := strconv.FormatFloat(v, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(raw, "-") {
		sign, raw = "-", raw[1:]
	}
	whole, frac, _ := strings.Cut(raw, ".")
	var sb strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	return sign + sb.String() + "." + frac
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func formatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return "None"
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// File path: internal/sqlgen/pattern.go
package sqlgen

import (
	"context"
	"strings"
)

type patternRule struct {
	all     []string
	any     []string
	refined string
	query   string
}

const totalSalesQuery = `SELECT SUM(amount) as total_sales
FROM sales
WHERE status = 'COMPLETED'`

// patternRules are checked in order; the first rule whose keywords all
// appear (and, when set, at least one of any) wins.
var patternRules = []patternRule{
	{
		all:     []string{"today"},
		any:     []string{"sale", "revenue"},
		refined: "What is the total sales amount for today?",
		query: `SELECT SUM(amount) as total_sales
FROM sales
WHERE status = 'COMPLETED'
AND order_date = date('now')`,
	},
	{
		all:     []string{"total", "sale"},
		refined: "What is the total sales amount?",
		query:   totalSalesQuery,
	},
	{
		all:     []string{"region", "sale"},
		refined: "What are the total sales by region?",
		query: `SELECT r.name as region, SUM(s.amount) as total_sales
FROM sales s
JOIN regions r ON s.region_id = r.id
WHERE s.status = 'COMPLETED'
GROUP BY r.name
ORDER BY total_sales DESC`,
	},
	{
		all:     []string{"product", "sale"},
		refined: "What are the top selling products?",
		query: `SELECT p.name as product, p.category, SUM(s.amount) as total_sales
FROM sales s
JOIN products p ON s.product_id = p.id
WHERE s.status = 'COMPLETED'
GROUP BY p.name, p.category
ORDER BY total_sales DESC
LIMIT 10`,
	},
	{
		all:     []string{"order"},
		any:     []string{"count", "how many"},
		refined: "How many orders have been placed?",
		query: `SELECT COUNT(*) as order_count
FROM sales
WHERE status = 'COMPLETED'`,
	},
	{
		all:     []string{"expense"},
		refined: "What is the total expense amount?",
		query: `SELECT SUM(amount) as total_expenses
FROM expenses`,
	},
}

// PatternGenerator maps common question shapes to fixed queries. It serves
// deployments without a configured language model; the default answer is
// total completed sales.
type PatternGenerator struct{}

var _ Generator = PatternGenerator{}

func (PatternGenerator) GenerateSQL(_ context.Context, question, _ string) (string, string, error) {
	refined, query := MatchPattern(question)
	return refined, query, nil
}

// MatchPattern returns the refined question and query for question.
func MatchPattern(question string) (string, string) {
	lower := strings.ToLower(question)
	for _, rule := range patternRules {
		if rule.matches(lower) {
			return rule.refined, rule.query
		}
	}
	return "What is the total sales amount?", totalSalesQuery
}

func (r patternRule) matches(lower string) bool {
	for _, keyword := range r.all {
		if !strings.Contains(lower, keyword) {
			return false
		}
	}
	if len(r.any) == 0 {
		return true
	}
	for _, keyword := range r.any {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

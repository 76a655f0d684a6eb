// File path: internal/sqlgen/sqlgen.go
package sqlgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicodishanthj/Katral_insight/internal/common"
)

// Generator turns a question and its retrieved context into a refined
// question and a query. An empty query means nothing was produced.
type Generator interface {
	GenerateSQL(ctx context.Context, question, knowledge string) (refined, query string, err error)
}

// Transport is the text generation call the client depends on.
type Transport interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

const temperature = 0.1

const systemPrompt = `You are a SQL expert for a sales analytics system running on SQLite.
For every question:
1. Rewrite the user's question as one clear business question.
2. Write a single read-only SQL query that answers it.
3. Use only the tables and columns named in the provided context.
4. Apply the metric definitions and business rules from the context.

RULES:
- Only SELECT statements.
- Never use INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, TRUNCATE or EXEC, not even inside identifiers; do not select created_at or updated_at columns.
- Use SQLite date functions such as date('now'), date('now', '-1 day') and date('now', 'start of month').
- Sales and revenue figures only count rows with status = 'COMPLETED'.
- Give every computed column a clear alias.
- Add LIMIT 10 to list queries.

Answer in exactly this format:
REFINED: <the refined question>
SQL: <the SQL query>`

// Client generates queries through a language model.
type Client struct {
	transport Transport
	logger    *slog.Logger
}

var _ Generator = (*Client)(nil)

func NewClient(transport Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = common.Logger()
	}
	return &Client{transport: transport, logger: logger}
}

func (c *Client) GenerateSQL(ctx context.Context, question, knowledge string) (string, string, error) {
	user := fmt.Sprintf("CONTEXT:\n%s\n\nUSER QUESTION: %s\n\nGenerate the refined question and SQL:", knowledge, question)
	response, err := c.transport.Generate(ctx, systemPrompt, user, temperature)
	if err != nil {
		return "", "", err
	}
	refined, query := Parse(response, question)
	if query == "" {
		c.logger.Warn("sqlgen: response carried no SQL line", "question", question)
	} else {
		c.logger.Debug("sqlgen: query generated", "refined", refined)
	}
	return refined, query, nil
}

// Parse reads a REFINED:/SQL: response. The first REFINED: line gives the
// refined question (fallback when absent); the first SQL: line and every
// line after it form the query, with code fences removed.
func Parse(response, fallback string) (refined, query string) {
	refined = fallback
	foundRefined := false
	lines := strings.Split(strings.TrimSpace(response), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case !foundRefined && strings.HasPrefix(trimmed, "REFINED:"):
			foundRefined = true
			if v := strings.TrimSpace(strings.TrimPrefix(trimmed, "REFINED:")); v != "" {
				refined = v
			}
		case strings.HasPrefix(trimmed, "SQL:"):
			parts := append([]string{strings.TrimPrefix(trimmed, "SQL:")}, lines[i+1:]...)
			return refined, stripFences(strings.Join(parts, "\n"))
		}
	}
	return refined, ""
}

func stripFences(query string) string {
	query = strings.TrimSpace(query)
	lower := strings.ToLower(query)
	switch {
	case strings.HasPrefix(lower, "```sql"):
		query = query[len("```sql"):]
	case strings.HasPrefix(lower, "```"):
		query = query[len("```"):]
	}
	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, "```")
	return strings.TrimSpace(query)
}

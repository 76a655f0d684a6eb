// File path: internal/answer/answer.go
package answer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

// Composer writes the user-facing answer for a question and its rows.
type Composer interface {
	Compose(ctx context.Context, refined string, rows []model.Row) (string, error)
}

// Transport is the text generation call the composer depends on.
type Transport interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

const temperature = 0.4

const systemPrompt = `You are a business analyst assistant. Write a clear, professional answer for a business user.

Guidelines:
- Quote the exact figures from the data.
- Format large numbers with thousands separators (for example 12,45,000 BDT).
- Use BDT as the currency.
- Point out top performers, notable gaps or trends when the data shows them.
- Never show SQL or other technical details.
- Keep it concise and conversational.`

// LLMComposer composes answers with one generation call.
type LLMComposer struct {
	transport Transport
}

var _ Composer = (*LLMComposer)(nil)

func NewLLMComposer(transport Transport) *LLMComposer {
	return &LLMComposer{transport: transport}
}

// Compose returns the model's text unmodified.
func (c *LLMComposer) Compose(ctx context.Context, refined string, rows []model.Row) (string, error) {
	if rows == nil {
		rows = []model.Row{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	user := fmt.Sprintf("QUESTION: %s\n\nDATA:\n%s\n\nWrite a clear, professional answer:", refined, data)
	return c.transport.Generate(ctx, systemPrompt, user, temperature)
}

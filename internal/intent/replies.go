// File path: internal/intent/replies.go
package intent

import (
	"fmt"
	"math/rand/v2"
)

var replyTemplates = map[Subkind][]string{
	SubkindGreeting: {
		"Hello! I'm your business analytics assistant. Ask me about sales, revenue, customers, products, regions or expenses.",
		"Hi there! What would you like to know about your business data today?",
		"Hello! Try asking something like \"What were total sales this month?\" or \"Which region sells the most?\"",
	},
	SubkindIdentity: {
		"I'm an analytics assistant. I turn your business questions into database queries and explain the results in plain language.",
	},
	SubkindCapabilities: {
		"I can look up sales, revenue, profit, order counts, customers, products, regional performance, invoices and expenses. Ask one question or list several, one per line.",
	},
	SubkindThanks: {
		"You're welcome! Let me know if you need any other figures.",
		"Happy to help. Anything else you'd like to check?",
	},
	SubkindFarewell: {
		"Goodbye! Come back any time you need numbers.",
		"See you soon. This conversation stays in your history.",
	},
	SubkindIntroduction: {
		"Nice to meet you, %s! Ask me anything about your sales, customers or expenses.",
	},
	SubkindOutOfScope: {
		"I can only help with questions about your business data, such as sales, revenue, customers, products, regions and expenses. Could you ask something along those lines?",
	},
	SubkindGeneric: {
		"Could you tell me a bit more about what you'd like to know? For example: \"What is the total sales amount?\"",
	},
}

// Templates returns the reply templates for a subkind. Introduction
// templates contain a %s verb for the name.
func Templates(subkind Subkind) []string {
	src := replyTemplates[subkind]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Responder renders canned replies for conversational classifications.
type Responder struct {
	pick func(n int) int
}

// NewResponder returns a Responder choosing templates with pick, or at
// random when pick is nil.
func NewResponder(pick func(n int) int) *Responder {
	if pick == nil {
		pick = rand.IntN
	}
	return &Responder{pick: pick}
}

// Reply renders a reply for c. Unknown subkinds fall back to the generic
// template.
func (r *Responder) Reply(c Classification) string {
	templates := replyTemplates[c.Subkind]
	if len(templates) == 0 {
		templates = replyTemplates[SubkindGeneric]
	}
	choice := templates[0]
	if len(templates) > 1 {
		idx := r.pick(len(templates))
		if idx >= 0 && idx < len(templates) {
			choice = templates[idx]
		}
	}
	if c.Subkind == SubkindIntroduction {
		name := c.Name
		if name == "" {
			name = "there"
		}
		return fmt.Sprintf(choice, name)
	}
	return choice
}

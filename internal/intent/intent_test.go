// File path: internal/intent/intent_test.go
package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecomposeListItems(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"dashes", "- total sales\n- total expenses", []string{"total sales", "total expenses"}},
		{"numbers", "1. sales by region\n2) top products\n3. order count", []string{"sales by region", "top products", "order count"}},
		{"bullets", "• revenue today\n  * revenue yesterday", []string{"revenue today", "revenue yesterday"}},
		{"numbers without spaces", "1.total sales\n2)total expenses", []string{"total sales", "total expenses"}},
		{"bullets beat question marks", "- what is revenue?\n- what is profit?", []string{"what is revenue?", "what is profit?"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decompose(tc.text))
		})
	}
}

func TestDecomposeQuestionMarks(t *testing.T) {
	got := Decompose("What is total revenue? ok? How many orders were placed?")
	assert.Equal(t, []string{"What is total revenue?", "How many orders were placed?"}, got)
}

func TestDecomposeFallsBackToTrimmedText(t *testing.T) {
	assert.Equal(t, []string{"total sales"}, Decompose("  total sales  "))
	assert.Equal(t, []string{"- only one item"}, Decompose("- only one item"))
	assert.Equal(t, []string{"1.5 million in sales\n2.5 million in expenses"}, Decompose("1.5 million in sales\n2.5 million in expenses"))
	assert.Equal(t, []string{"a? b?"}, Decompose("a? b?"))
}

func TestClassifyMultiQuestion(t *testing.T) {
	assert.Equal(t, KindMultiQuestion, Classify("- total sales\n- total expenses").Kind)
	assert.Equal(t, KindMultiQuestion, Classify("hello? are you there?").Kind)
	assert.Equal(t, KindMultiQuestion, Classify("1.total sales\n2)total expenses").Kind)
	assert.NotEqual(t, KindMultiQuestion, ClassifySingle("hello? are you there?").Kind)
}

func TestDomainKeywordsOverrideConversation(t *testing.T) {
	for _, text := range []string{
		"Hello, what were total sales today",
		"Thanks! how many orders did we get",
		"who is our top customer",
		"tell me about revenue in Dhaka",
		"What is the total sales amount?",
	} {
		c := Classify(text)
		assert.Equal(t, KindDataQuery, c.Kind, text)
	}
}

func TestClassifyConversational(t *testing.T) {
	cases := map[string]Subkind{
		"Hello":                    SubkindGreeting,
		"good morning":             SubkindGreeting,
		"who are you":              SubkindIdentity,
		"what can you do":          SubkindCapabilities,
		"thank you so much":        SubkindThanks,
		"bye":                      SubkindFarewell,
		"My name is rahim":         SubkindIntroduction,
		"who is the president":     SubkindOutOfScope,
		"translate this to french": SubkindOutOfScope,
		"interesting":              SubkindGeneric,
	}
	for text, want := range cases {
		c := Classify(text)
		require.Equal(t, KindConversational, c.Kind, text)
		assert.Equal(t, want, c.Subkind, text)
	}
	assert.Equal(t, "Rahim", Classify("My name is rahim").Name)
}

func TestClassifyLongUnmatchedTextIsData(t *testing.T) {
	assert.Equal(t, KindDataQuery, Classify("list every supplier we onboarded during spring").Kind)
}

func TestResponderUsesTemplates(t *testing.T) {
	r := NewResponder(func(n int) int { return n - 1 })
	greetings := Templates(SubkindGreeting)
	assert.Equal(t, greetings[len(greetings)-1], r.Reply(Classification{Kind: KindConversational, Subkind: SubkindGreeting}))

	intro := r.Reply(Classification{Kind: KindConversational, Subkind: SubkindIntroduction, Name: "Nadia"})
	assert.True(t, strings.HasPrefix(intro, "Nice to meet you, Nadia!"), intro)

	generic := r.Reply(Classification{Kind: KindConversational, Subkind: "unknown"})
	assert.Equal(t, Templates(SubkindGeneric)[0], generic)
}

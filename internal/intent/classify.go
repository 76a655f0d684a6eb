// File path: internal/intent/classify.go
package intent

import (
	"regexp"
	"strings"
)

// Kind is the routing decision for one incoming text.
type Kind int

const (
	KindDataQuery Kind = iota
	KindConversational
	KindMultiQuestion
)

func (k Kind) String() string {
	switch k {
	case KindConversational:
		return "conversational"
	case KindMultiQuestion:
		return "multi_question"
	default:
		return "data_query"
	}
}

// Subkind refines a conversational classification.
type Subkind string

const (
	SubkindNone         Subkind = ""
	SubkindGreeting     Subkind = "greeting"
	SubkindIdentity     Subkind = "identity"
	SubkindCapabilities Subkind = "capabilities"
	SubkindThanks       Subkind = "thanks"
	SubkindFarewell     Subkind = "farewell"
	SubkindIntroduction Subkind = "introduction"
	SubkindOutOfScope   Subkind = "out_of_scope"
	SubkindGeneric      Subkind = "generic"
)

// Classification is the result of Classify. Name is set for introductions.
type Classification struct {
	Kind    Kind
	Subkind Subkind
	Name    string
}

// maxGenericTokens is the longest unmatched text still treated as small talk.
const maxGenericTokens = 4

var domainKeywords = []string{
	"sale", "revenue", "profit", "margin", "order", "customer", "product",
	"region", "count", "average", "avg", "total", "sum of", "expense",
	"invoice", "amount", "quantity", "price", "discount", "payment", "bdt",
	"taka", "today", "yesterday", "this week", "last week", "this month",
	"last month", "this year", "last year", "quarter", "daily", "weekly",
	"monthly", "yearly", "how many", "how much", "top ", "highest", "lowest",
	"trend", "growth", "category", "categories", "dhaka", "chattogram",
	"sylhet", "khulna",
}

var outOfScopePhrases = []string{
	"what is a ", "what is an ", "what's a ", "what is the meaning",
	"what is the capital", "who is ", "who was ", "who invented",
	"tell me about", "tell me a joke", "joke", "define ", "definition of",
	"translate", "weather", "capital of", "president", "prime minister",
	"recipe", "poem", "news", "movie", "song", "football", "cricket",
	"google", "microsoft", "apple inc", "facebook", "amazon", "tesla",
	"openai", "chatgpt",
}

type conversationalRule struct {
	subkind Subkind
	pattern *regexp.Regexp
}

var (
	introductionPattern = regexp.MustCompile(`(?i)\b(?:my name is|call me)\s+([\p{L}][\p{L}'-]*)`)
	selfIntroPattern    = regexp.MustCompile(`(?i)^\s*(?:i am|i'm)\s+([\p{L}][\p{L}'-]*)\s*[.!]?\s*$`)

	conversationalRules = []conversationalRule{
		{SubkindIdentity, regexp.MustCompile(`\b(?:who are you|what are you|what is your name|what's your name|your name|are you (?:a )?(?:bot|human|robot|ai))\b`)},
		{SubkindCapabilities, regexp.MustCompile(`\b(?:what can you do|how can you help|what do you do|how does this work|help me|help)\b`)},
		{SubkindThanks, regexp.MustCompile(`\b(?:thanks|thank you|thank u|thx|appreciate it|much appreciated)\b`)},
		{SubkindFarewell, regexp.MustCompile(`\b(?:bye|goodbye|good bye|see you|see ya|good night|take care)\b`)},
		{SubkindGreeting, regexp.MustCompile(`\b(?:hi|hello|hey|hiya|howdy|greetings|good (?:morning|afternoon|evening)|salam|assalamu alaikum)\b`)},
	}
)

// IsMultiQuestion reports whether text carries two or more list items or
// question marks.
func IsMultiQuestion(text string) bool {
	return len(listItems(text)) >= 2 || strings.Count(text, "?") >= 2
}

// Classify routes text. Multi-question detection runs first, then the domain
// keyword check, which always beats the conversational heuristics.
func Classify(text string) Classification {
	if IsMultiQuestion(text) {
		return Classification{Kind: KindMultiQuestion}
	}
	return ClassifySingle(text)
}

// ClassifySingle is Classify without the multi-question check; the pipeline
// uses it for each decomposed part.
func ClassifySingle(text string) Classification {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if containsAny(lowered, domainKeywords) {
		return Classification{Kind: KindDataQuery}
	}
	if containsAny(lowered, outOfScopePhrases) {
		return Classification{Kind: KindConversational, Subkind: SubkindOutOfScope}
	}
	if name := introducedName(text); name != "" {
		return Classification{Kind: KindConversational, Subkind: SubkindIntroduction, Name: name}
	}
	for _, rule := range conversationalRules {
		if rule.pattern.MatchString(lowered) {
			return Classification{Kind: KindConversational, Subkind: rule.subkind}
		}
	}
	if len(strings.Fields(lowered)) <= maxGenericTokens {
		return Classification{Kind: KindConversational, Subkind: SubkindGeneric}
	}
	return Classification{Kind: KindDataQuery}
}

// notNames are words that follow "I am" without being a name.
var notNames = map[string]struct{}{
	"fine": {}, "good": {}, "great": {}, "ok": {}, "okay": {}, "well": {},
	"here": {}, "back": {}, "ready": {}, "new": {}, "sorry": {}, "happy": {},
	"tired": {}, "bored": {}, "lost": {}, "confused": {}, "done": {},
}

func introducedName(text string) string {
	for _, pattern := range []*regexp.Regexp{introductionPattern, selfIntroPattern} {
		if m := pattern.FindStringSubmatch(text); m != nil {
			if _, skip := notNames[strings.ToLower(m[1])]; skip {
				continue
			}
			name := []rune(strings.ToLower(m[1]))
			name[0] = []rune(strings.ToUpper(string(name[0])))[0]
			return string(name)
		}
	}
	return ""
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

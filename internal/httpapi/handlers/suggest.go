package handlers

import (
	"strings"

	"github.com/mhoward-dev/portfolio-chat/internal/sanitize"
)

// Suggester derives follow-up questions for a completed turn. The exact
// wording is not load-bearing, so the heuristic is swappable.
type Suggester interface {
	Suggestions(message, reply string, hist []sanitize.HistoryItem) []string
}

const suggestionLimit = 3

type suggestionTopic struct {
	name     string
	keywords []string
	question string
}

// KeywordSuggester proposes questions about profile topics mentioned in
// the current turn but not yet discussed in the conversation.
type KeywordSuggester struct {
	topics   []suggestionTopic
	fallback []string
}

func NewKeywordSuggester() *KeywordSuggester {
	return &KeywordSuggester{
		topics: []suggestionTopic{
			{
				name:     "experience",
				keywords: []string{"experience", "career", "role", "director", "engineer", "work"},
				question: "What roles has Michael held over his career?",
			},
			{
				name:     "awards",
				keywords: []string{"award", "recognition", "honor"},
				question: "What awards has Michael received?",
			},
			{
				name:     "education",
				keywords: []string{"education", "degree", "university", "studied"},
				question: "What is Michael's educational background?",
			},
			{
				name:     "technical",
				keywords: []string{"technical", "technology", "distributed", "go", "typescript", "cloud", "iot"},
				question: "What technologies does Michael work with?",
			},
			{
				name:     "leadership",
				keywords: []string{"leadership", "team", "mentor", "manage"},
				question: "How has Michael grown the teams he leads?",
			},
			{
				name:     "industry",
				keywords: []string{"manufacturing", "automation", "industrial", "scada", "plc", "factory"},
				question: "What has Michael built for manufacturing and automation?",
			},
		},
		fallback: []string{
			"What is Michael's professional experience?",
			"What technologies does Michael work with?",
			"What is Michael's educational background?",
		},
	}
}

func (s *KeywordSuggester) Suggestions(message, reply string, hist []sanitize.HistoryItem) []string {
	discussed := s.matchTopics(historyText(hist))
	matched := s.matchTopics(strings.ToLower(message + " " + reply))

	out := make([]string, 0, suggestionLimit)
	seen := make(map[string]bool)
	for _, t := range s.topics {
		if len(out) == suggestionLimit {
			break
		}
		if !matched[t.name] || discussed[t.name] || seen[t.question] {
			continue
		}
		seen[t.question] = true
		out = append(out, t.question)
	}

	if len(out) == 0 {
		return append([]string(nil), s.fallback...)
	}
	return out
}

// matchTopics returns the set of topic names whose keywords appear in
// the lowercased text.
func (s *KeywordSuggester) matchTopics(text string) map[string]bool {
	found := make(map[string]bool)
	for _, t := range s.topics {
		for _, kw := range t.keywords {
			if strings.Contains(text, kw) {
				found[t.name] = true
				break
			}
		}
	}
	return found
}

func historyText(hist []sanitize.HistoryItem) string {
	var b strings.Builder
	for _, h := range hist {
		b.WriteString(strings.ToLower(h.Content))
		b.WriteByte(' ')
	}
	return b.String()
}

// Package patterns derives situational lookup keys from a moment.
//
// Keys feed the learning store: feedback on a matched thought is recorded
// against every key of the moment, and hints for a new moment are looked up
// by its keys. Extraction is deliberately crude (no stemming) and fully
// deterministic.
package patterns

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Type identifies what a pattern key was derived from.
type Type string

const (
	TypeEventType Type = "event_type"
	TypeKeyword   Type = "keyword"
	TypeRecurring Type = "recurring"
	TypeAttendee  Type = "attendee"
)

const (
	// MaxKeywords is the number of keywords taken from a description.
	MaxKeywords = 5

	// MaxAttendees is the number of attendee keys taken from a calendar event.
	MaxAttendees = 5

	minKeywordLen = 4
)

// Pattern is a single (type, key) lookup pair.
type Pattern struct {
	Type Type   `json:"pattern_type"`
	Key  string `json:"pattern_key"`
}

// Input is the moment data patterns are derived from.
type Input struct {
	Description     string
	EventType       EventType
	ExternalEventID string
	Attendees       []string
}

// Extract returns the patterns for in. Order is keywords, event type,
// recurring, attendees; callers must not depend on it.
func Extract(in Input) []Pattern {
	var out []Pattern

	for _, kw := range Keywords(in.Description) {
		out = append(out, Pattern{Type: TypeKeyword, Key: kw})
	}

	if in.EventType.IsKnown() {
		out = append(out, Pattern{Type: TypeEventType, Key: string(in.EventType)})
	}

	if key, ok := RecurringKey(in.ExternalEventID); ok {
		out = append(out, Pattern{Type: TypeRecurring, Key: key})
	}

	n := 0
	for _, email := range in.Attendees {
		if n == MaxAttendees {
			break
		}
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		out = append(out, Pattern{Type: TypeAttendee, Key: "attendee:" + email})
		n++
	}

	return out
}

// Keywords lower-cases text, turns every non-word character into a space,
// and returns the first MaxKeywords tokens longer than three characters
// that are not stop words.
func Keywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	keywords := make([]string, 0, MaxKeywords)
	for _, tok := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(tok) < minKeywordLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		keywords = append(keywords, tok)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}

// RecurringKey derives the series key for a calendar event id. Providers
// append instance suffixes after an underscore, so the part before the
// first underscore identifies the series.
func RecurringKey(externalEventID string) (string, bool) {
	id := strings.TrimSpace(externalEventID)
	if id == "" {
		return "", false
	}
	base, _, _ := strings.Cut(id, "_")
	if base == "" {
		return "", false
	}
	return "event:" + base, true
}

// Keys returns the distinct keys of ps in first-seen order.
func Keys(ps []Pattern) []string {
	seen := make(map[string]struct{}, len(ps))
	keys := make([]string, 0, len(ps))
	for _, p := range ps {
		if _, ok := seen[p.Key]; ok {
			continue
		}
		seen[p.Key] = struct{}{}
		keys = append(keys, p.Key)
	}
	return keys
}

// Dedupe returns ps without repeated (type, key) pairs, in first-seen order.
func Dedupe(ps []Pattern) []Pattern {
	seen := make(map[Pattern]struct{}, len(ps))
	out := make([]Pattern, 0, len(ps))
	for _, p := range ps {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

var stopWords = toSet(
	"about", "above", "after", "again", "also", "been", "before", "being",
	"below", "between", "both", "could", "does", "doing", "down", "during",
	"each", "from", "further", "have", "having", "here", "into", "just",
	"more", "most", "only", "other", "over", "same", "should", "some",
	"such", "than", "that", "their", "them", "then", "there", "these",
	"they", "this", "those", "through", "under", "until", "very", "were",
	"what", "when", "where", "which", "while", "will", "with", "would",
	"your", "yours",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

package matching

import (
	"fmt"
	"strings"
)

const promptInstructions = `You help a person recall their own advice at the right moment.
Score how relevant each numbered thought is to the situation below.

Respond with JSON only, in this shape:
{"matches": [{"gem_id": "<id>", "relevance_score": <0.0-1.0>, "relevance_reason": "<one sentence>"}]}

Rules:
- Only use ids from the list.
- Only include thoughts scoring at least 0.5.
- Include at most 5 thoughts, most relevant first.
- If nothing is relevant, return {"matches": []}.`

// buildPrompt renders the scorer prompt. Every piece of user text passes
// through scrub; ids are generated by the store and are sent as-is.
func buildPrompt(description string, candidates []Candidate, hints []Hint, scrub func(string) string) string {
	var b strings.Builder
	b.WriteString(promptInstructions)

	b.WriteString("\n\nSituation:\n")
	b.WriteString(scrub(description))

	if len(hints) > 0 {
		b.WriteString("\n\nThoughts previously helpful for similar situations:\n")
		for _, h := range hints {
			fmt.Fprintf(&b, "- %s (helpful %d times, %.0f%% of the time)", h.ThoughtID, h.HelpfulCount, h.Confidence*100)
			if h.Content != "" {
				fmt.Fprintf(&b, ": %s", scrub(h.Content))
			}
			b.WriteByte('\n')
		}
		b.WriteString("Weigh these higher when they fit, but still judge them on this situation.")
	}

	b.WriteString("\n\nThoughts:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. [id: %s] %s (context: %s", i+1, c.ID, scrub(c.Content), scrub(c.ContextTag))
		if c.Source != "" {
			fmt.Fprintf(&b, ", source: %s", scrub(c.Source))
		}
		b.WriteString(")\n")
	}
	return b.String()
}

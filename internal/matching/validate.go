package matching

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Field names accepted from the scorer, in order of preference.
var (
	idFields     = []string{"gem_id", "thought_id"}
	scoreFields  = []string{"relevance_score"}
	reasonFields = []string{"relevance_reason", "reason"}
)

// Validate turns a parsed scorer response into at most MaxMatches matches.
//
// raw must be a JSON array (as decoded by encoding/json) of objects. An entry
// survives only if its id is in validIDs, its score lies in
// [MinRelevanceScore, 1] and its trimmed reason is non-empty. Survivors are
// rounded to two decimals, sorted by score descending with input order
// breaking ties, de-duplicated by id (highest score wins) and truncated.
// Anything else yields an empty slice.
func Validate(raw any, validIDs map[string]struct{}) []Match {
	entries, ok := raw.([]any)
	if !ok {
		return []Match{}
	}

	out := make([]Match, 0, len(entries))
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok || obj == nil {
			continue
		}

		id, ok := coerceString(firstField(obj, idFields))
		if !ok {
			continue
		}
		if _, known := validIDs[id]; !known {
			continue
		}

		score, ok := coerceNumber(firstField(obj, scoreFields))
		if !ok || score < MinRelevanceScore || score > 1 {
			continue
		}

		reason, ok := coerceString(firstField(obj, reasonFields))
		if !ok {
			continue
		}
		reason = strings.TrimSpace(reason)
		if reason == "" {
			continue
		}

		out = append(out, Match{
			ThoughtID: id,
			Score:     math.Round(score*100) / 100,
			Reason:    truncateRunes(reason, MaxReasonLength),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	seen := make(map[string]struct{}, len(out))
	deduped := out[:0]
	for _, m := range out {
		if _, dup := seen[m.ThoughtID]; dup {
			continue
		}
		seen[m.ThoughtID] = struct{}{}
		deduped = append(deduped, m)
	}

	if len(deduped) > MaxMatches {
		deduped = deduped[:MaxMatches]
	}
	return deduped
}

// firstField returns the first present, non-null value among keys.
func firstField(obj map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// coerceString accepts strings, finite numbers and booleans.
func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// coerceNumber accepts finite numbers, numeric strings and booleans (1/0).
func coerceNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if t {
			f = 1
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

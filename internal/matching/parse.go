package matching

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseResponse decodes the scorer's raw text into a generic JSON value.
// Code fences are stripped and a {"matches": ...} wrapper is unwrapped; any
// other object is returned as-is and rejected later by Validate.
func parseResponse(raw string) (any, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if obj, ok := v.(map[string]any); ok {
		if inner, ok := obj["matches"]; ok {
			return inner, nil
		}
	}
	return v, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

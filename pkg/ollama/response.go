package ollama

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNoText is returned for an empty model response.
var ErrNoText = errors.New("model response has no text")

// ResponseText extracts the generated text from a model response body. It
// accepts a JSON string, {"response"}, {"result":{"response"}},
// {"message":{"content"}} and {"choices":[{"message":{"content"}}]}. Any other
// body, JSON or not, is the text itself. Only an empty body is an error.
func ResponseText(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", ErrNoText
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err == nil {
		if s, ok := textOf(v); ok {
			return s, nil
		}
	}
	return string(trimmed), nil
}

func textOf(v any) (string, bool) {
	switch tv := v.(type) {
	case string:
		return tv, true
	case map[string]any:
		if s, ok := tv["response"].(string); ok {
			return s, true
		}
		if r, ok := tv["result"]; ok {
			return textOf(r)
		}
		if m, ok := tv["message"].(map[string]any); ok {
			if s, ok := m["content"].(string); ok {
				return s, true
			}
		}
		if choices, ok := tv["choices"].([]any); ok && len(choices) > 0 {
			if c, ok := choices[0].(map[string]any); ok {
				if s, ok := textOf(c); ok {
					return s, true
				}
				if s, ok := c["text"].(string); ok {
					return s, true
				}
			}
		}
	}
	return "", false
}

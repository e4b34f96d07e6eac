package rag

import (
	"encoding/json"
	"fmt"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
)

// sourceTextLimit caps the passage text echoed back in UsedSource.
const sourceTextLimit = 600

// StructuredAnswer is the JSON object the model is asked to produce.
type StructuredAnswer struct {
	Summary     string   `json:"summary"`
	Triage      []string `json:"triage"`
	Mitigations []string `json:"mitigations"`
	Dont        []string `json:"dont"`
	Citations   []string `json:"citations"`
}

// wireAnswer distinguishes a missing summary from an empty one.
type wireAnswer struct {
	Summary     *string  `json:"summary"`
	Triage      []string `json:"triage"`
	Mitigations []string `json:"mitigations"`
	Dont        []string `json:"dont"`
	Citations   []string `json:"citations"`
}

// ResolveAnswer parses raw model output. A JSON object with a string summary
// yields that summary and the parsed answer; anything else yields raw
// unchanged and a nil answer. The returned error wraps
// domain.ErrMalformedOutput and is for logging only.
func ResolveAnswer(raw string) (text string, structured *StructuredAnswer, err error) {
	var w wireAnswer
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return raw, nil, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	if w.Summary == nil {
		return raw, nil, fmt.Errorf("%w: summary missing", domain.ErrMalformedOutput)
	}
	return *w.Summary, &StructuredAnswer{
		Summary:     *w.Summary,
		Triage:      w.Triage,
		Mitigations: w.Mitigations,
		Dont:        w.Dont,
		Citations:   w.Citations,
	}, nil
}

// UsedSource is the provenance of one cited passage.
type UsedSource struct {
	Ref    string  `json:"ref"`
	Source string  `json:"source"`
	Chunk  int     `json:"chunk"`
	ID     string  `json:"id"`
	Score  float32 `json:"score"`
	Text   string  `json:"text"`
}

// UsedSources describes the picked matches in rank order.
func UsedSources(picked []Match) []UsedSource {
	out := make([]UsedSource, len(picked))
	for i, m := range picked {
		out[i] = UsedSource{
			Ref:    m.Ref(),
			Source: m.Source,
			Chunk:  m.Chunk,
			ID:     m.ID,
			Score:  m.Score,
			Text:   truncate(m.Text, sourceTextLimit),
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

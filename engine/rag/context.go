package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MinContextChars is the smallest context budget ever used.
const MinContextChars = 1000

const contextSep = "\n"

// Context is the source section of a prompt and the matches it cites.
type Context struct {
	Text   string
	Picked []Match
}

// FormatBlock renders a match as a labelled source block.
func FormatBlock(m Match) string {
	return fmt.Sprintf("[%s] (%s, chunk %d)\n%s\n", m.Ref(), m.Source, m.Chunk, m.Text)
}

// AssembleContext packs matches in rank order until the next block would
// push the text past maxChars. Matches without text are skipped. The first
// block that does not fit ends assembly; later, smaller blocks are not tried.
// maxChars is raised to MinContextChars when lower.
func AssembleContext(matches []Match, maxChars int) Context {
	maxChars = max(maxChars, MinContextChars)

	var b strings.Builder
	size := 0
	picked := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Text == "" {
			continue
		}
		block := FormatBlock(m)
		n := utf8.RuneCountInString(contextSep) + utf8.RuneCountInString(block)
		if size+n > maxChars {
			break
		}
		b.WriteString(contextSep)
		b.WriteString(block)
		size += n
		picked = append(picked, m)
	}
	return Context{Text: b.String(), Picked: picked}
}

// DefaultSystemPrompt instructs the model to answer from the sources only and
// to reply with a StructuredAnswer JSON object.
var DefaultSystemPrompt = strings.Join([]string{
	"You are an SRE/Incident Response copilot.",
	"You MUST answer using ONLY the provided Sources.",
	"",
	"Output MUST be valid JSON only (no markdown, no extra text).",
	"Schema:",
	"{",
	`  "summary": string,`,
	`  "triage": string[],`,
	`  "mitigations": string[],`,
	`  "dont": string[],`,
	`  "citations": string[]  // like ["S1","S2"]`,
	"}",
	"",
	"Rules:",
	"- If Sources are insufficient, set summary to 'Not enough information in the provided sources.'",
	"- Keep arrays short and actionable (3-6 items).",
	"- citations must reference the Sources you used.",
}, "\n")

// UserPrompt embeds the question and the assembled sources.
func UserPrompt(question, sources string) string {
	return fmt.Sprintf("Question: %s\n\nSources:\n%s\n\nReturn JSON:", question, sources)
}

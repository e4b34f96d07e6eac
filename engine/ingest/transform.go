package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
)

// paragraphBreak matches a blank-line boundary: two or more newlines.
var paragraphBreak = regexp.MustCompile(`\n{2,}`)

const paragraphSep = "\n\n"

// ChunkText splits text into paragraph-packed chunks of at most maxChars
// characters. Paragraphs are packed greedily, joined by a blank line; a
// paragraph longer than maxChars is hard-split into maxChars slices and never
// merged with its neighbours. Blank input yields no chunks. maxChars <= 0
// falls back to domain.DefaultMaxChars.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = domain.DefaultMaxChars
	}
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if cleaned == "" {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if bufLen > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}

	for _, p := range paragraphBreak.Split(cleaned, -1) {
		para := strings.TrimSpace(p)
		if para == "" {
			continue
		}
		paraLen := utf8.RuneCountInString(para)

		if bufLen > 0 && bufLen+len(paragraphSep)+paraLen <= maxChars {
			buf.WriteString(paragraphSep)
			buf.WriteString(para)
			bufLen += len(paragraphSep) + paraLen
			continue
		}

		flush()
		if paraLen <= maxChars {
			buf.WriteString(para)
			bufLen = paraLen
			continue
		}
		chunks = append(chunks, hardSplit(para, maxChars)...)
	}
	flush()
	return chunks
}

// hardSplit cuts s into consecutive slices of exactly n runes; the last may be shorter.
func hardSplit(s string, n int) []string {
	runes := []rune(s)
	out := make([]string, 0, len(runes)/n+1)
	for i := 0; i < len(runes); i += n {
		end := i + n
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

package rag

import (
	"strings"
	"testing"
)

func longMatch(rank int, n int) Match {
	return Match{Rank: rank, ID: "doc:" + string(rune('0'+rank)), Source: "runbook.md", Chunk: rank - 1, Text: strings.Repeat("x", n)}
}

func TestAssembleContext_Idempotent(t *testing.T) {
	matches := []Match{longMatch(1, 300), longMatch(2, 400), longMatch(3, 500)}
	a := AssembleContext(matches, 1200)
	b := AssembleContext(matches, 1200)
	if a.Text != b.Text || len(a.Picked) != len(b.Picked) {
		t.Fatal("assembly must be deterministic")
	}
	for i := range a.Picked {
		if a.Picked[i].ID != b.Picked[i].ID {
			t.Fatal("picked subsequence differs between runs")
		}
	}
}

func TestAssembleContext_StableLabelsSkippingEmptyText(t *testing.T) {
	matches := []Match{
		{Rank: 1, Source: "a.md", Chunk: 0, Text: ""},
		{Rank: 2, Source: "b.md", Chunk: 3, Text: "drain the node"},
		{Rank: 3, Source: "c.md", Chunk: 1, Text: ""},
		{Rank: 4, Source: "d.md", Chunk: 2, Text: "page the DBA"},
	}
	ctx := AssembleContext(matches, 8000)

	want := "\n[S2] (b.md, chunk 3)\ndrain the node\n\n[S4] (d.md, chunk 2)\npage the DBA\n"
	if ctx.Text != want {
		t.Fatalf("unexpected context:\n%q\nwant\n%q", ctx.Text, want)
	}

	used := UsedSources(ctx.Picked)
	if len(used) != 2 || used[0].Ref != "S2" || used[1].Ref != "S4" {
		t.Fatalf("unexpected refs: %+v", used)
	}
}

func TestAssembleContext_StopsAtFirstOverflow(t *testing.T) {
	matches := []Match{longMatch(1, 600), longMatch(2, 900), longMatch(3, 10)}
	ctx := AssembleContext(matches, 1200)
	if len(ctx.Picked) != 1 || ctx.Picked[0].Rank != 1 {
		t.Fatalf("expected only S1, got %d picked", len(ctx.Picked))
	}
	if strings.Contains(ctx.Text, "[S3]") {
		t.Fatal("smaller later blocks must not be packed after an overflow")
	}
}

func TestAssembleContext_FirstBlockOverBudget(t *testing.T) {
	m := longMatch(1, 1500)
	block := FormatBlock(m)
	ctx := AssembleContext([]Match{m, longMatch(2, 5)}, len(block)-1)
	if len(ctx.Picked) != 0 || ctx.Text != "" {
		t.Fatalf("expected nothing picked, got %d", len(ctx.Picked))
	}
}

func TestAssembleContext_BudgetFloor(t *testing.T) {
	// The block plus separator needs ~900 characters; a budget of 10 is raised to 1000.
	ctx := AssembleContext([]Match{longMatch(1, 850)}, 10)
	if len(ctx.Picked) != 1 {
		t.Fatal("budget should be floored at MinContextChars")
	}
}

func TestAssembleContext_ExactFit(t *testing.T) {
	m := longMatch(1, 1200)
	budget := len(contextSep) + len(FormatBlock(m))
	if got := AssembleContext([]Match{m}, budget); len(got.Picked) != 1 {
		t.Fatal("a block that exactly fills the budget should be picked")
	}
	if got := AssembleContext([]Match{m}, budget-1); len(got.Picked) != 0 {
		t.Fatal("a block one character over budget should not be picked")
	}
}

func TestUsedSources_TruncatesText(t *testing.T) {
	used := UsedSources([]Match{{Rank: 1, ID: "d:0", Score: 0.5, Source: "s", Chunk: 0, Text: strings.Repeat("ü", 700)}})
	if n := len([]rune(used[0].Text)); n != 600 {
		t.Fatalf("expected 600 characters, got %d", n)
	}
	if used[0].ID != "d:0" || used[0].Score != 0.5 {
		t.Fatalf("unexpected source: %+v", used[0])
	}
}

func TestResolveAnswer(t *testing.T) {
	text, sa, err := ResolveAnswer(`{"summary":"Not enough information in the provided sources.","triage":[],"mitigations":[],"dont":[],"citations":[]}`)
	if err != nil || sa == nil {
		t.Fatalf("expected structured answer, got %v", err)
	}
	if text != "Not enough information in the provided sources." {
		t.Fatalf("unexpected text %q", text)
	}

	raw := "```json\n{\"summary\":\"fenced\"}\n```"
	text, sa, err = ResolveAnswer(raw)
	if err == nil || sa != nil || text != raw {
		t.Fatal("fenced output should fall back to raw text")
	}
}

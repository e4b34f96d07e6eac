package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
	"github.com/WessleyAI/edgerag-helpdesk/engine/semantic"
)

// Bounds applied to every top-K value before querying.
const (
	MinTopK = 1
	MaxTopK = 20
)

// Embedder turns an ordered batch of texts into one vector per text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher abstracts the tenant-filtered vector query.
type Searcher interface {
	Query(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]semantic.SearchResult, error)
}

// Match is a retrieved passage. Rank is its 1-based position in the order the
// index returned it.
type Match struct {
	Rank   int
	ID     string
	Score  float32
	Tenant string
	Source string
	Chunk  int
	Text   string
}

// Ref returns the citation label of the match.
func (m Match) Ref() string {
	return fmt.Sprintf("S%d", m.Rank)
}

// ClampTopK bounds k to [MinTopK, MaxTopK].
func ClampTopK(k int) int {
	return min(max(k, MinTopK), MaxTopK)
}

// Retriever embeds questions and queries the index for one tenant.
type Retriever struct {
	embed  Embedder
	search Searcher
	logger *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(e Embedder, s Searcher, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embed: e, search: s, logger: logger}
}

// Retrieve returns up to topK passages for question, best first, restricted
// to tenant. The index order is kept as is.
func (r *Retriever) Retrieve(ctx context.Context, question, tenant string, topK int) ([]Match, error) {
	topK = ClampTopK(topK)

	vectors, err := r.embed.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("rag: embed question: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("rag: embed question: %w", domain.ErrEmbedding)
	}

	results, err := r.search.Query(ctx, vectors[0], topK, map[string]string{domain.KeyTenant: tenant})
	if err != nil {
		return nil, fmt.Errorf("rag: vector query: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for i, res := range results {
		if res.Tenant != tenant {
			r.logger.Warn("rag: dropping match from another tenant",
				"tenant", tenant, "match_tenant", res.Tenant, "id", res.ID)
			continue
		}
		matches = append(matches, Match{
			Rank:   i + 1,
			ID:     res.ID,
			Score:  res.Score,
			Tenant: res.Tenant,
			Source: res.Source,
			Chunk:  res.Chunk,
			Text:   res.Text,
		})
	}
	return matches, nil
}

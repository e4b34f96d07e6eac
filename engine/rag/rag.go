// Package rag answers helpdesk questions: it retrieves tenant-scoped passages,
// packs them into a budgeted prompt with S{rank} citations, asks the model
// once and resolves its output into a structured or plain-text answer.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
)

// Completer invokes the generative model once and returns its raw text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options configures the query pipeline.
type Options struct {
	DefaultTenant   string
	TopK            int
	MaxContextChars int
	SystemPrompt    string
}

// DefaultOptions returns the defaults used by the HTTP API.
func DefaultOptions() Options {
	return Options{
		DefaultTenant:   "public",
		TopK:            6,
		MaxContextChars: 8000,
		SystemPrompt:    DefaultSystemPrompt,
	}
}

// Question is a chat request. Zero TopK and empty Tenant use the defaults.
type Question struct {
	Text   string `json:"question"`
	Tenant string `json:"tenant,omitempty"`
	TopK   int    `json:"topK,omitempty"`
}

// Answer is the response to a Question.
type Answer struct {
	Text        string            `json:"answer"`
	Structured  *StructuredAnswer `json:"structured"`
	Tenant      string            `json:"tenant"`
	UsedSources []UsedSource      `json:"usedSources"`
}

// Service is the RAG orchestration service.
type Service struct {
	retriever *Retriever
	model     Completer
	opts      Options
	logger    *slog.Logger
}

// New creates a new RAG Service.
func New(e Embedder, s Searcher, model Completer, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	return &Service{
		retriever: NewRetriever(e, s, logger),
		model:     model,
		opts:      opts,
		logger:    logger,
	}
}

// Ask runs embed, retrieve, assemble, invoke and resolve for one question.
// Any collaborator failure aborts the request; malformed model output does not.
func (s *Service) Ask(ctx context.Context, q Question) (*Answer, error) {
	question, err := domain.ValidateQuestion(q.Text)
	if err != nil {
		return nil, err
	}
	tenant := domain.ResolveTenant(q.Tenant, s.opts.DefaultTenant)
	topK := q.TopK
	if topK == 0 {
		topK = s.opts.TopK
	}
	topK = ClampTopK(topK)

	start := time.Now()
	matches, err := s.retriever.Retrieve(ctx, question, tenant, topK)
	if err != nil {
		return nil, err
	}

	assembled := AssembleContext(matches, s.opts.MaxContextChars)
	s.logger.Info("rag: context assembled",
		"tenant", tenant,
		"top_k", topK,
		"matches", len(matches),
		"picked", len(assembled.Picked),
	)

	raw, err := s.model.Complete(ctx, s.opts.SystemPrompt, UserPrompt(question, assembled.Text))
	if err != nil {
		return nil, fmt.Errorf("rag: complete: %w", err)
	}

	text, structured, perr := ResolveAnswer(raw)
	if perr != nil {
		s.logger.Info("rag: falling back to raw answer", "err", perr)
	}

	s.logger.Info("rag: answered", "tenant", tenant, "structured", structured != nil, "duration", time.Since(start))
	return &Answer{
		Text:        text,
		Structured:  structured,
		Tenant:      tenant,
		UsedSources: UsedSources(assembled.Picked),
	}, nil
}

// Package ingest provides the ingestion pipeline that turns raw documents into
// indexed chunks: prepare, chunk, embed, store. Documents are processed one at
// a time; each document is upserted before the next one starts, so a failure
// leaves earlier documents committed.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
	"github.com/WessleyAI/edgerag-helpdesk/engine/semantic"
	"github.com/WessleyAI/edgerag-helpdesk/pkg/fn"
)

// Embedder turns an ordered batch of texts into one vector per text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Upserter writes records into the vector index.
type Upserter interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) (semantic.UpsertResult, error)
}

// Options configures document defaults and chunk size.
type Options struct {
	DefaultTenant string
	MaxChars      int
}

// DefaultOptions returns the defaults used by the HTTP API.
func DefaultOptions() Options {
	return Options{
		DefaultTenant: "public",
		MaxChars:      domain.DefaultMaxChars,
	}
}

// Deps holds the collaborators of the ingestion pipeline.
type Deps struct {
	Embedder Embedder
	Store    Upserter
	Options  Options
	Logger   *slog.Logger
	// NewID generates ids for documents submitted without one.
	NewID func() string
}

// Service ingests batches of documents.
type Service struct {
	pipeline fn.Stage[domain.Document, StoredDoc]
	logger   *slog.Logger
}

// New wires the pipeline stages into a Service.
func New(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pipeline: NewPipeline(deps),
		logger:   log,
	}
}

// --- Pipeline Stages ---

// NewPrepare fills document defaults: a fresh id, the default tenant, and
// the "manual" source.
func NewPrepare(defaultTenant string, newID func() string) fn.Stage[domain.Document, domain.Document] {
	if newID == nil {
		newID = uuid.NewString
	}
	return func(_ context.Context, d domain.Document) fn.Result[domain.Document] {
		if d.ID == "" {
			d.ID = newID()
		}
		d.Tenant = domain.ResolveTenant(d.Tenant, defaultTenant)
		d.Source = strings.TrimSpace(d.Source)
		if d.Source == "" {
			d.Source = domain.DefaultSource
		}
		if d.Tags == nil {
			d.Tags = []string{}
		}
		return fn.Ok(d)
	}
}

// NewChunk creates a stage that splits a prepared document into chunks.
func NewChunk(maxChars int) fn.Stage[domain.Document, ChunkedDoc] {
	return func(_ context.Context, d domain.Document) fn.Result[ChunkedDoc] {
		texts := ChunkText(d.Text, maxChars)
		chunks := make([]domain.Chunk, len(texts))
		for i, t := range texts {
			chunks[i] = domain.Chunk{
				ParentID: d.ID,
				Index:    i,
				Text:     t,
				Tenant:   d.Tenant,
				Source:   d.Source,
				Tags:     d.Tags,
			}
		}
		return fn.Ok(ChunkedDoc{Document: d, Chunks: chunks})
	}
}

// NewEmbed creates a stage that embeds all of a document's chunks in a single
// batched call. A document without chunks skips the call.
func NewEmbed(e Embedder) fn.Stage[ChunkedDoc, EmbeddedDoc] {
	return func(ctx context.Context, doc ChunkedDoc) fn.Result[EmbeddedDoc] {
		if len(doc.Chunks) == 0 {
			return fn.Ok(EmbeddedDoc{ChunkedDoc: doc})
		}
		texts := fn.Map(doc.Chunks, func(c domain.Chunk) string { return c.Text })

		vectors, err := e.Embed(ctx, texts)
		if err != nil {
			return fn.Err[EmbeddedDoc](fmt.Errorf("embed chunks: %w", err))
		}
		if len(vectors) != len(texts) {
			return fn.Err[EmbeddedDoc](fmt.Errorf("embed chunks: got %d vectors for %d chunks: %w", len(vectors), len(texts), domain.ErrEmbedding))
		}
		return fn.Ok(EmbeddedDoc{ChunkedDoc: doc, Embeddings: vectors})
	}
}

// NewStore creates a stage that upserts one record per chunk.
func NewStore(s Upserter) fn.Stage[EmbeddedDoc, StoredDoc] {
	return func(ctx context.Context, doc EmbeddedDoc) fn.Result[StoredDoc] {
		if len(doc.Chunks) == 0 {
			return fn.Ok(StoredDoc{ID: doc.ID})
		}
		records := make([]semantic.VectorRecord, len(doc.Chunks))
		for i, c := range doc.Chunks {
			records[i] = semantic.VectorRecord{
				ID:        c.RecordID(),
				Embedding: doc.Embeddings[i],
				Payload:   c.Metadata(),
			}
		}
		res, err := s.Upsert(ctx, records)
		if err != nil {
			return fn.Err[StoredDoc](fmt.Errorf("vector upsert: %w", err))
		}
		return fn.Ok(StoredDoc{ID: doc.ID, Chunks: len(records), Upsert: res})
	}
}

// NewPipeline composes Prepare → Chunk → Embed → Store, each stage traced.
func NewPipeline(deps Deps) fn.Stage[domain.Document, StoredDoc] {
	opts := deps.Options
	if opts.MaxChars <= 0 {
		opts.MaxChars = domain.DefaultMaxChars
	}

	prepared := fn.TracedStage("ingest.prepare", NewPrepare(opts.DefaultTenant, deps.NewID))
	chunked := fn.Then(prepared, fn.TracedStage("ingest.chunk", NewChunk(opts.MaxChars)))
	embedded := fn.Then(chunked, fn.TracedStage("ingest.embed", NewEmbed(deps.Embedder)))
	return fn.Then(embedded, fn.TracedStage("ingest.store", NewStore(deps.Store)))
}

// Ingest runs every document through the pipeline in order. The first
// failing document aborts the batch; documents before it stay committed.
func (s *Service) Ingest(ctx context.Context, docs []domain.Document) (*Result, error) {
	if err := domain.ValidateDocuments(docs); err != nil {
		return nil, err
	}

	res := &Result{TotalDocs: len(docs), Mutation: Mutation{OperationIDs: []uint64{}}}
	for i, d := range docs {
		start := time.Now()
		stored, err := s.pipeline(ctx, d).Unwrap()
		if err != nil {
			s.logger.Error("ingest: document failed", "index", i, "doc_id", d.ID, "err", err)
			return nil, fmt.Errorf("ingest: document %d: %w", i, err)
		}
		s.logger.Info("ingest: document stored",
			"doc_id", stored.ID,
			"chunks", stored.Chunks,
			"duration", time.Since(start),
		)

		res.TotalChunks += stored.Chunks
		if stored.Chunks > 0 {
			res.Mutation.Count += stored.Chunks
			res.Mutation.OperationIDs = append(res.Mutation.OperationIDs, stored.Upsert.OperationID)
		}
	}
	res.OK = true
	return res, nil
}

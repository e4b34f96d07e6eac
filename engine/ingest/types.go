package ingest

import (
	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
	"github.com/WessleyAI/edgerag-helpdesk/engine/semantic"
)

// ChunkedDoc is a prepared document split into embeddable chunks.
type ChunkedDoc struct {
	domain.Document
	Chunks []domain.Chunk
}

// EmbeddedDoc is a chunked document with one embedding per chunk.
type EmbeddedDoc struct {
	ChunkedDoc
	Embeddings [][]float32
}

// StoredDoc reports what one document contributed to the index.
type StoredDoc struct {
	ID     string
	Chunks int
	Upsert semantic.UpsertResult
}

// Mutation summarises the index writes of an ingestion batch.
type Mutation struct {
	Count        int      `json:"count"`
	OperationIDs []uint64 `json:"operationIds"`
}

// Result is returned by Service.Ingest.
type Result struct {
	OK          bool     `json:"ok"`
	TotalDocs   int      `json:"totalDocs"`
	TotalChunks int      `json:"totalChunks"`
	Mutation    Mutation `json:"mutation"`
}

// Request is the body of an ingestion call, over HTTP or NATS.
type Request struct {
	Documents []domain.Document `json:"documents"`
}

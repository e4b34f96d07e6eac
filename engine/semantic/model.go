package semantic

// SearchResult is a single vector query hit with its decoded payload.
type SearchResult struct {
	ID     string   `json:"id"`
	Score  float32  `json:"score"`
	Tenant string   `json:"tenant"`
	Source string   `json:"source"`
	Chunk  int      `json:"chunk"`
	Text   string   `json:"text"`
	Tags   []string `json:"tags,omitempty"`
}

// VectorRecord is a single vector to upsert. ID is the composite record id
// ("{parentId}:{index}"); Payload holds tenant, source, tags, chunk and text.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any
}

// UpsertResult reports the Qdrant operation that applied an upsert.
type UpsertResult struct {
	OperationID uint64 `json:"operationId"`
	Status      string `json:"status"`
}

// Package domain defines the core types, payload keys, and validation for the
// helpdesk RAG engine. It acts as the validation gate at every entry point:
// nothing here talks to a collaborator.
package domain

import "fmt"

// Defaults applied to ingested documents.
const (
	DefaultSource   = "manual"
	DefaultMaxChars = 1400
)

// Payload keys stored with every indexed record.
const (
	KeyTenant   = "tenant"
	KeySource   = "source"
	KeyTags     = "tags"
	KeyChunk    = "chunk"
	KeyText     = "text"
	KeyRecordID = "record_id"
	KeyDocID    = "doc_id"
)

// Document is a raw document submitted for ingestion.
type Document struct {
	ID     string   `json:"id,omitempty"`
	Text   string   `json:"text"`
	Source string   `json:"source,omitempty"`
	Tenant string   `json:"tenant,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Chunk is an immutable slice of a document, the unit of embedding and retrieval.
type Chunk struct {
	ParentID string
	Index    int
	Text     string
	Tenant   string
	Source   string
	Tags     []string
}

// RecordID returns the storage identity "{parentId}:{index}".
func (c Chunk) RecordID() string {
	return ChunkRecordID(c.ParentID, c.Index)
}

// ChunkRecordID builds the composite id of a chunk.
func ChunkRecordID(parentID string, index int) string {
	return fmt.Sprintf("%s:%d", parentID, index)
}

// Metadata returns the payload persisted next to the chunk's vector.
func (c Chunk) Metadata() map[string]any {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		KeyTenant:   c.Tenant,
		KeySource:   c.Source,
		KeyTags:     tags,
		KeyChunk:    c.Index,
		KeyText:     c.Text,
		KeyRecordID: c.RecordID(),
		KeyDocID:    c.ParentID,
	}
}

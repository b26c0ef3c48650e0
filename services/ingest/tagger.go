package ingest

import (
	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/vectorindex"
)

// Tag stamps text chunks with their tenant and source document so every
// indexed vector carries the metadata retrieval filters on. Chunks with
// no page number get page 0.
func Tag(chunks []TextChunk, orgID uuid.UUID, documentName string) []vectorindex.Chunk {
	tagged := make([]vectorindex.Chunk, 0, len(chunks))
	for _, c := range chunks {
		page := c.Page
		if page < 0 {
			page = 0
		}
		tagged = append(tagged, vectorindex.Chunk{
			Text:         c.Text,
			DocumentName: documentName,
			Page:         page,
			OrgID:        orgID,
		})
	}
	return tagged
}

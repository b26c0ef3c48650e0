package ingest

const (
	// DefaultChunkSize is the chunk window size in runes.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is how many runes consecutive chunks share.
	DefaultChunkOverlap = 100
)

// TextChunk is a piece of page text before it is tagged for the index.
type TextChunk struct {
	Text string
	Page int
}

// Chunker splits page text into fixed-size overlapping windows. Windows
// are measured in runes so multi-byte text never splits mid-character.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap.
// Invalid values fall back to the defaults.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks every page, preserving each chunk's source page number.
// Pages with no text produce no chunks.
func (c *Chunker) Split(pages []Page) []TextChunk {
	var chunks []TextChunk
	for _, page := range pages {
		for _, text := range c.splitText(page.Text) {
			chunks = append(chunks, TextChunk{Text: text, Page: page.Number})
		}
	}
	return chunks
}

func (c *Chunker) splitText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

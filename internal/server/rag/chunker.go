package rag

// Chunker splits document text into fixed-size, overlapping chunks suitable
// for embedding.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = defaultChunkOverlap % chunkSize
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

func (c *Chunker) Chunk(text string) []string {
	l := len(text)
	if l == 0 {
		return []string{}
	}

	step := c.chunkSize - c.chunkOverlap
	pos := 0
	res := make([]string, 0, l/step+1)

	for {
		end := min(pos+c.chunkSize, l)
		res = append(res, text[pos:end])
		if end >= l {
			break
		}

		pos += step
	}

	return res
}

package knowledge

import "strings"

// Chunker splits guide text into overlapping word windows
type Chunker struct {
	WindowWords  int // Target words per chunk
	OverlapWords int // Words shared between consecutive chunks
}

// NewChunker creates a new Chunker with the given window settings
func NewChunker(windowWords, overlapWords int) *Chunker {
	if overlapWords >= windowWords {
		overlapWords = windowWords / 4
	}
	return &Chunker{
		WindowWords:  windowWords,
		OverlapWords: overlapWords,
	}
}

// ChunkText splits text into word-window chunks with overlap. Splitting
// on whitespace keeps Unicode text intact and avoids cutting words in
// half the way byte slicing would.
func (c *Chunker) ChunkText(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	step := c.WindowWords - c.OverlapWords
	for i := 0; i < len(words); i += step {
		end := i + c.WindowWords
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, strings.Join(words[i:end], " "))

		if end == len(words) {
			break
		}
	}

	return chunks
}

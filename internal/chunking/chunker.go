// Package chunking splits raw document text into overlapping, size-bounded
// segments suitable for embedding and retrieval.
package chunking

import (
	"strings"
	"unicode"
)

// Config controls how documents are split into chunks.
type Config struct {
	// ChunkSize is the target chunk length in runes.
	ChunkSize int
	// Overlap is the number of runes shared between consecutive chunks.
	// Must be smaller than ChunkSize.
	Overlap int
	// MinChunkSize is the smallest chunk worth keeping; shorter windows
	// are dropped.
	MinChunkSize int
}

// DefaultConfig provides sane defaults for chunking.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		Overlap:      200,
		MinChunkSize: 100,
	}
}

// Chunker splits text into overlapping chunks, preferring to cut at
// paragraph, sentence, or word boundaries.
type Chunker struct {
	cfg Config
}

// New creates a Chunker. Invalid configurations fall back to defaults.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 || cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize || cfg.MinChunkSize > cfg.ChunkSize {
		cfg = DefaultConfig()
	}
	if cfg.MinChunkSize < 0 {
		cfg.MinChunkSize = 0
	}
	return &Chunker{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Chunker) Config() Config {
	return c.cfg
}

// Chunk splits text into ordered, overlapping chunks. Input shorter than
// ChunkSize yields a single chunk when it meets MinChunkSize, otherwise
// nothing. Windows shorter than MinChunkSize after boundary adjustment are
// dropped but never stall the scan: each iteration the window start strictly
// advances.
func (c *Chunker) Chunk(text string) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}

	runes := []rune(clean)
	if len(runes) <= c.cfg.ChunkSize {
		if len(runes) >= c.cfg.MinChunkSize {
			return []string{clean}
		}
		return nil
	}

	chunks := make([]string, 0, 1+len(runes)/(c.cfg.ChunkSize-c.cfg.Overlap))
	start := 0
	for start < len(runes) {
		end := start + c.cfg.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			searchStart := end - c.cfg.Overlap
			if searchStart < start {
				searchStart = start
			}
			if cut := breakPoint(runes, searchStart, end); cut > start {
				end = cut
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(chunk)) >= c.cfg.MinChunkSize {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		// Overlapping advance; the guard below guarantees strictly
		// monotonic progress even when boundary adjustment pulled the
		// window end back to (or before) the current start.
		next := end - c.cfg.Overlap
		if next <= start {
			step := c.cfg.ChunkSize - c.cfg.Overlap
			if step < 1 {
				step = 1
			}
			next = start + step
		}
		start = next
	}

	return chunks
}

// breakPoint finds the best position to cut a chunk, scanning backward
// through [searchStart, end). Priority: paragraph break, then sentence
// ending followed by whitespace, then any whitespace. Returns 0 when no
// boundary exists in the window.
func breakPoint(runes []rune, searchStart, end int) int {
	for i := end - 2; i >= searchStart; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}

	for i := end - 1; i >= searchStart; i-- {
		if isSentenceEnd(runes[i]) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}

	for i := end - 1; i >= searchStart; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	return 0
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Chunk is the normalized unit stored in the index: evidence text plus
// metadata and an embedding vector. ChunkID is content-addressed so that
// re-ingesting identical content is a no-op.
type Chunk struct {
	ChunkID   string
	Text      string
	URL       string
	Source    string
	Type      DocumentType
	Symbol    string
	Date      time.Time
	Embedding []float32
	CreatedAt time.Time
}

// ChunkID derives the deterministic content hash for a chunk. Two documents
// with the same URL and text map to the same chunk regardless of fetch path.
func ChunkID(url, text string) string {
	sum := sha256.Sum256([]byte(url + text))
	return hex.EncodeToString(sum[:])
}

// RetrievalResult is an ordered sequence of scored chunks produced fresh per
// query; it is never persisted.
type RetrievalResult []ScoredChunk

// ScoredChunk pairs a chunk with its combined retrieval score.
type ScoredChunk struct {
	Chunk         Chunk
	Score         float32
	SemanticScore float32
	LexicalScore  float32
}

// Citations derives the source list for a verdict from the retrieval result.
func (r RetrievalResult) Citations() []Citation {
	seen := make(map[string]bool, len(r))
	out := make([]Citation, 0, len(r))
	for _, sc := range r {
		if sc.Chunk.URL == "" || seen[sc.Chunk.URL] {
			continue
		}
		seen[sc.Chunk.URL] = true
		title := sc.Chunk.Source
		if t := firstLine(sc.Chunk.Text); t != "" {
			title = t
		}
		out = append(out, Citation{Title: title, URL: sc.Chunk.URL})
	}
	return out
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if runes := []rune(text); len(runes) > 120 {
		return string(runes[:120])
	}
	return text
}

package knowledge

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"farmhand/internal/logging"
)

// Chunk is a stored guide fragment with its search score
type Chunk struct {
	Source string
	Text   string
	Score  float64
}

// SearchStore lists stored chunks for scoring
type SearchStore interface {
	ListChunks(ctx context.Context) ([]Chunk, error)
}

// Searcher ranks stored chunks against a query by token overlap
type Searcher struct {
	store  SearchStore
	logger *logging.Logger
}

// NewSearcher creates a new Searcher over the given store
func NewSearcher(store SearchStore, logger *logging.Logger) *Searcher {
	return &Searcher{
		store:  store,
		logger: logger,
	}
}

// Search returns the topK chunks most relevant to the query. Chunks
// that share no tokens with the query are dropped.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]Chunk, error) {
	logger := s.logger.WithFields(map[string]interface{}{
		"query_size": len(query),
		"limit":      topK,
	})
	logger.Debug("starting knowledge search")

	chunks, err := s.store.ListChunks(ctx)
	if err != nil {
		logger.WithContext("error", err.Error()).Error("listing chunks failed")
		return nil, err
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	var scored []Chunk
	for _, chunk := range chunks {
		score := OverlapScore(queryTokens, tokenize(chunk.Text))
		if score <= 0 {
			continue
		}
		chunk.Score = score
		scored = append(scored, chunk)
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	logger.WithContext("result_count", len(scored)).Debug("search completed")
	return scored, nil
}

// OverlapScore computes the normalized token overlap between a query
// and a chunk. Returns a value in [0, 1], where 1.0 means every query
// token appears in a chunk of the same vocabulary size.
func OverlapScore(queryTokens, chunkTokens map[string]bool) float64 {
	if len(queryTokens) == 0 || len(chunkTokens) == 0 {
		return 0
	}

	shared := 0
	for token := range queryTokens {
		if chunkTokens[token] {
			shared++
		}
	}

	return float64(shared) / math.Sqrt(float64(len(queryTokens))*float64(len(chunkTokens)))
}

// tokenize lowercases text and splits it on non-letter, non-digit runes
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(word) < 2 {
			continue
		}
		tokens[word] = true
	}
	return tokens
}

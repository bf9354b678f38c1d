package rag

import (
	"math"
	"sort"
	"sync"
)

// Store is an in-memory document store supporting cosine similarity search.
// It is populated once during index construction and read-only afterwards.
type Store struct {
	mu   sync.RWMutex
	docs []Document
}

func NewStore() *Store {
	return &Store{docs: []Document{}}
}

func (s *Store) Add(docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Documents returns a copy of the stored documents in insertion order.
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Cosine computes the cosine similarity between two vectors. Returns a value
// between -1 and 1, or 0 when the vectors differ in length or are zero.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// Search returns up to k documents whose cosine similarity to the query
// vector is at least threshold, sorted by descending similarity. Fewer than k
// results (including none) is a valid outcome, not an error.
func (s *Store) Search(query []float32, k int, threshold float32) []SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.docs))
	for _, doc := range s.docs {
		score := Cosine(query, doc.Embedding)
		if score >= threshold {
			results = append(results, SearchResult{Document: doc, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

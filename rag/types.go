package rag

// Document is an immutable chunk of the reference corpus together with its
// embedding vector. Documents are created once during index construction and
// never mutated afterwards.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
}

// SearchResult pairs a document with its cosine similarity to a query.
type SearchResult struct {
	Document Document
	Score    float32
}

package models

// IndexedRecord is one active answer's searchable projection, positionally
// aligned with its vector in the flat index. The JSON keys match the persisted
// metadata blob layout.
type IndexedRecord struct {
	SourceID    int64  `json:"id"`
	Content     string `json:"content"`
	ParentTitle string `json:"question"`
}

// RetrievedContext is a single retrieval hit handed to prompt construction.
// It is never persisted. Similarity is derived from squared L2 distance as
// 1 - distance; this is a relative ranking signal, not a calibrated score,
// and the relevance threshold is defined against this scale.
type RetrievedContext struct {
	SourceID    int64   `json:"id"`
	Content     string  `json:"content"`
	ParentTitle string  `json:"question"`
	Distance    float64 `json:"distance"`
	Similarity  float64 `json:"similarity"`
}

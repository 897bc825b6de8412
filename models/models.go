package models

// Document is a stored paper passage. The embedding carries the fixed
// dimensionality of the corpus (the vector column enforces it on write).
type Document struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Chunk     string    `json:"chunk"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// RetrievedDocument is a per-query search hit. SimilarityScore is
// 1 - cosine distance, so higher means more similar.
type RetrievedDocument struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Summary         string  `json:"summary"`
	Chunk           string  `json:"chunk"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Usage reports token accounting for a completion call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationResult carries the model answer plus optional throughput metadata.
type GenerationResult struct {
	Response        string  `json:"response"`
	TokensPerSecond float64 `json:"response_tokens_per_second,omitempty"`
}

package models

type Passage struct {
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
	SourceID string  `json:"source_id"`
}

type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

type RAGRequest struct {
	Question string `json:"question"`
}

type RAGResponse struct {
	Response string    `json:"response"`
	Context  []Passage `json:"context"`
}

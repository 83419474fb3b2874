package model

const (
	PolicyTypePolicy = "policy"
	PolicyTypeFAQ    = "faq"
)

type PolicyDocument struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	Type      string    `json:"type"`
	Embedding []float32 `json:"embedding,omitempty"`
}

type KnowledgeMatch struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Text     string  `json:"text"`
	Category string  `json:"category"`
	Type     string  `json:"type"`
	Score    float64 `json:"score"`
}

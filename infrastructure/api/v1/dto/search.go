// Package dto holds the request bodies of the v1 API.
package dto

// SearchAttributes represents search request attributes in JSON:API format.
type SearchAttributes struct {
	Query         string   `json:"query"`
	TopK          *int     `json:"top_k,omitempty"`
	MinSimilarity *float64 `json:"min_similarity,omitempty"`
}

// SearchData represents search request data in JSON:API format.
type SearchData struct {
	Type       string           `json:"type"`
	Attributes SearchAttributes `json:"attributes"`
}

// SearchRequest represents a JSON:API search request.
type SearchRequest struct {
	Data SearchData `json:"data"`
}

// AskAttributes represents ask request attributes in JSON:API format.
type AskAttributes struct {
	SearchAttributes
	Model       *string  `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// AskData represents ask request data in JSON:API format.
type AskData struct {
	Type       string        `json:"type"`
	Attributes AskAttributes `json:"attributes"`
}

// AskRequest represents a JSON:API ask request.
type AskRequest struct {
	Data AskData `json:"data"`
}

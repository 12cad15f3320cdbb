package domain

// Board is the top-level container of buckets.
type Board struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsPublic bool   `json:"isPublic,omitempty"`
}

// Bucket is a column within a board.
type Bucket struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
	Name    string `json:"name"`
}

package model

import (
	"time"
)

// Category classifies questions and sub-questions. Not hierarchical itself;
// subcategory references point at the same table.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

package model

import "time"

// Tag is a cross-cutting label for categorizing entries.
type Tag struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DefaultTags are created by setup.
var DefaultTags = []Tag{
	{Name: "vote", Color: "#dc3545"},
	{Name: "question", Color: "#0dcaf0"},
}

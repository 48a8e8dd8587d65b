package model

import (
	"strings"
	"time"
	"unicode"
)

// Board is the top-level container. It owns columns and the
// correspondents that make up its address-alias settings.
type Board struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Column is a lane on a board. Position defines left-to-right order and
// is unique per board.
type Column struct {
	ID        string    `json:"id" db:"id"`
	BoardID   string    `json:"board_id" db:"board_id"`
	Name      string    `json:"name" db:"name"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DefaultColumns are created by setup, in position order.
var DefaultColumns = []string{"Todo", "Waiting", "Voting", "Decided", "Archived"}

// Slugify lowercases name and joins its alphanumeric runs with dashes,
// so "Budget 2025 / Q1" becomes "budget-2025-q1".
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

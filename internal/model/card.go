package model

import "time"

// Card is a discussion thread shown as a kanban item. It belongs to
// exactly one column at a time.
type Card struct {
	ID             string     `json:"id" db:"id"`
	ColumnID       string     `json:"column_id" db:"column_id"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	StartDate      *time.Time `json:"start_date,omitempty" db:"start_date"`
	LastUpdateDate *time.Time `json:"last_update_date,omitempty" db:"last_update_date"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`

	// Entries is populated by board-scoped reads, ordered by date.
	Entries []Entry `json:"entries,omitempty" db:"-"`

	// EntryCount is optionally populated for list views.
	EntryCount int `json:"entry_count,omitempty" db:"-"`
}

// LatestEntry returns the most recent entry by date, or nil when the
// card has no entries loaded.
func (c Card) LatestEntry() *Entry {
	var latest *Entry
	for i := range c.Entries {
		if latest == nil || !c.Entries[i].Date.Before(latest.Date) {
			latest = &c.Entries[i]
		}
	}
	return latest
}

// LastActivity is the card's last_update_date, falling back to its
// creation time for cards without entries.
func (c Card) LastActivity() time.Time {
	if c.LastUpdateDate != nil {
		return *c.LastUpdateDate
	}
	return c.CreatedAt
}

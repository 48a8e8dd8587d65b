package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one imported email (or manual note) attached to a card.
// Entries are immutable once created except for Summary.
type Entry struct {
	ID        string `json:"id" db:"id"`
	BoardID   string `json:"board_id" db:"board_id"`
	CardID    string `json:"card_id" db:"card_id"`
	FromAddr  string `json:"from_addr" db:"from_addr"`
	FromName  string `json:"from_name" db:"from_name"`
	Subject   string `json:"subject" db:"subject"`
	MessageID string `json:"message_id" db:"message_id"`

	// Recipients holds the To and Cc addresses of the message.
	Recipients StringList `json:"recipients" db:"recipients"`

	// Date is the message timestamp and is authoritative for ordering.
	Date       time.Time `json:"date" db:"date"`
	Body       string    `json:"body" db:"body"`
	RawMessage string    `json:"raw_message" db:"raw_message"`

	// Summary is a short human-written annotation, e.g. "+1".
	Summary   string    `json:"summary" db:"summary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Tags is populated by queries that join with entry_tags. On create,
	// the listed tags are attached in the same transaction as the entry.
	Tags []Tag `json:"tags,omitempty" db:"-"`
}

// Label is the one-line rendering used in listings.
func (e Entry) Label() string {
	if e.Summary != "" {
		return e.FromAddr + ": " + e.Summary
	}
	subject := []rune(e.Subject)
	if len(subject) > 50 {
		subject = subject[:50]
	}
	return e.FromAddr + ": " + string(subject)
}

// StringList is a list of strings stored as a JSON array column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshaling string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scanning string list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshaling string list: %w", err)
	}
	*l = out
	return nil
}

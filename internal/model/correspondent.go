package model

import (
	"strings"
	"time"
)

// Correspondent is a person known to a board. Aliases are alternative
// addresses that collapse onto Email when matching participants.
type Correspondent struct {
	ID        string     `json:"id" db:"id"`
	BoardID   string     `json:"board_id" db:"board_id"`
	Email     string     `json:"email" db:"email"`
	Name      string     `json:"name" db:"name"`
	Aliases   StringList `json:"aliases" db:"aliases"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

func (c Correspondent) String() string {
	if c.Name != "" {
		return c.Name + " <" + c.Email + ">"
	}
	return c.Email
}

// AliasMap resolves raw sender addresses to a canonical participant
// identity. It is board-scoped configuration loaded per operation.
type AliasMap map[string]string

// NewAliasMap builds the alias map for a board's correspondents.
func NewAliasMap(correspondents []Correspondent) AliasMap {
	m := make(AliasMap)
	for _, c := range correspondents {
		canonical := CanonicalAddress(c.Email)
		if canonical == "" {
			continue
		}
		m[canonical] = canonical
		for _, alias := range c.Aliases {
			if a := CanonicalAddress(alias); a != "" {
				m[a] = canonical
			}
		}
	}
	return m
}

// Resolve returns the canonical participant for addr. Unknown addresses
// resolve to their own canonical form. A nil map is valid.
func (m AliasMap) Resolve(addr string) string {
	a := CanonicalAddress(addr)
	if a == "" {
		return ""
	}
	if canonical, ok := m[a]; ok {
		return canonical
	}
	return a
}

// CanonicalAddress reduces "Name <User@Example.com>" to "user@example.com".
func CanonicalAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if open := strings.LastIndex(addr, "<"); open >= 0 {
		if end := strings.Index(addr[open:], ">"); end > 0 {
			addr = addr[open+1 : open+end]
		}
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

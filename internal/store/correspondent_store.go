package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/threadboard/internal/model"
)

const correspondentColumns = "id, board_id, email, name, aliases, created_at"

// UpsertCorrespondent inserts a correspondent, or replaces the name and
// aliases of the one already registered for the same board and address.
func (s *SQLiteStore) UpsertCorrespondent(ctx context.Context, c *model.Correspondent) error {
	c.Email = model.CanonicalAddress(c.Email)
	if c.Email == "" {
		return fmt.Errorf("correspondent email must not be empty")
	}
	if c.BoardID == "" {
		return fmt.Errorf("correspondent board must not be empty")
	}
	aliases := make(model.StringList, 0, len(c.Aliases))
	for _, a := range c.Aliases {
		if a = model.CanonicalAddress(a); a != "" && a != c.Email {
			aliases = append(aliases, a)
		}
	}
	c.Aliases = aliases
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO correspondents (`+correspondentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(board_id, email) DO UPDATE SET
			name = excluded.name,
			aliases = excluded.aliases`,
		c.ID, c.BoardID, c.Email, c.Name, c.Aliases, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving correspondent %s: %w", c.Email, err)
	}

	// Reload so the caller sees the surviving row's identity.
	err = s.db.GetContext(ctx, c,
		"SELECT "+correspondentColumns+" FROM correspondents WHERE board_id = ? AND email = ?",
		c.BoardID, c.Email)
	if err != nil {
		return fmt.Errorf("reloading correspondent %s: %w", c.Email, err)
	}
	return nil
}

// GetCorrespondents retrieves a board's correspondents ordered by address.
func (s *SQLiteStore) GetCorrespondents(ctx context.Context, boardID string) ([]model.Correspondent, error) {
	var out []model.Correspondent
	err := s.db.SelectContext(ctx, &out,
		"SELECT "+correspondentColumns+" FROM correspondents WHERE board_id = ? ORDER BY email",
		boardID)
	if err != nil {
		return nil, fmt.Errorf("querying correspondents for board %s: %w", boardID, err)
	}
	return out, nil
}

// GetAliasMap builds the participant alias map for a board.
func (s *SQLiteStore) GetAliasMap(ctx context.Context, boardID string) (model.AliasMap, error) {
	correspondents, err := s.GetCorrespondents(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return model.NewAliasMap(correspondents), nil
}

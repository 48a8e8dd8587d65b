package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/threadboard/internal/model"
)

const cardColumns = `c.id, c.column_id, c.title, c.description,
	c.start_date, c.last_update_date, c.created_at, c.updated_at`

// cardOrder lists the most recently active cards first.
const cardOrder = "ORDER BY COALESCE(c.last_update_date, c.created_at) DESC, c.created_at, c.id"

// CreateCard inserts a new card. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateCard(ctx context.Context, card *model.Card) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertCardTx(ctx, tx, card); err != nil {
		return err
	}
	return tx.Commit()
}

func insertCardTx(ctx context.Context, tx *sqlx.Tx, card *model.Card) error {
	if strings.TrimSpace(card.Title) == "" {
		return fmt.Errorf("card title must not be empty")
	}

	var exists int
	if err := tx.GetContext(ctx, &exists,
		"SELECT COUNT(*) FROM columns WHERE id = ?", card.ColumnID); err != nil {
		return fmt.Errorf("checking column %s: %w", card.ColumnID, err)
	}
	if exists == 0 {
		return fmt.Errorf("column %s: %w", card.ColumnID, ErrNotFound)
	}

	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	ts := now()
	card.CreatedAt = ts
	card.UpdatedAt = ts

	_, err := tx.ExecContext(ctx, `
		INSERT INTO cards (
			id, column_id, title, description,
			start_date, last_update_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.ColumnID, card.Title, card.Description,
		card.StartDate, card.LastUpdateDate, card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating card: %w", err)
	}
	return nil
}

// GetCardByID retrieves a single card with its entries in date order.
func (s *SQLiteStore) GetCardByID(ctx context.Context, id string) (*model.Card, error) {
	var card model.Card
	err := s.db.GetContext(ctx, &card,
		"SELECT "+cardColumns+" FROM cards c WHERE c.id = ?", id)
	if err != nil {
		return nil, notFound(err, "card "+id)
	}

	entries, err := s.GetEntriesForCard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading entries for card %s: %w", id, err)
	}
	card.Entries = entries
	card.EntryCount = len(entries)

	return &card, nil
}

// GetCardsByColumn retrieves a column's cards, most recently active first,
// with EntryCount populated.
func (s *SQLiteStore) GetCardsByColumn(ctx context.Context, columnID string) ([]model.Card, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT `+cardColumns+`,
			(SELECT COUNT(*) FROM entries e WHERE e.card_id = c.id) AS entry_count
		FROM cards c
		WHERE c.column_id = ?
		`+cardOrder, columnID)
	if err != nil {
		return nil, fmt.Errorf("querying cards for column %s: %w", columnID, err)
	}
	defer rows.Close()

	var cards []model.Card
	for rows.Next() {
		var c model.Card
		if err := rows.Scan(
			&c.ID, &c.ColumnID, &c.Title, &c.Description,
			&c.StartDate, &c.LastUpdateDate, &c.CreatedAt, &c.UpdatedAt,
			&c.EntryCount,
		); err != nil {
			return nil, fmt.Errorf("scanning card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// GetCardsWithEntries retrieves every card on a board together with its
// entries (without raw message text) in date order. This is the input the
// candidate matcher ranks.
func (s *SQLiteStore) GetCardsWithEntries(ctx context.Context, boardID string) ([]model.Card, error) {
	var cards []model.Card
	err := s.db.SelectContext(ctx, &cards, `
		SELECT `+cardColumns+`
		FROM cards c
		INNER JOIN columns col ON col.id = c.column_id
		WHERE col.board_id = ?
		`+cardOrder, boardID)
	if err != nil {
		return nil, fmt.Errorf("querying cards for board %s: %w", boardID, err)
	}

	var entries []model.Entry
	err = s.db.SelectContext(ctx, &entries,
		"SELECT "+entryListColumns+" FROM entries WHERE board_id = ? ORDER BY card_id, date, created_at",
		boardID)
	if err != nil {
		return nil, fmt.Errorf("querying entries for board %s: %w", boardID, err)
	}

	byCard := make(map[string][]model.Entry, len(cards))
	for _, e := range entries {
		byCard[e.CardID] = append(byCard[e.CardID], e)
	}
	for i := range cards {
		cards[i].Entries = byCard[cards[i].ID]
		cards[i].EntryCount = len(cards[i].Entries)
	}

	return cards, nil
}

// UpdateCard updates a card's title and description.
func (s *SQLiteStore) UpdateCard(ctx context.Context, card model.Card) error {
	if strings.TrimSpace(card.Title) == "" {
		return fmt.Errorf("card title must not be empty")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE cards SET title = ?, description = ?, updated_at = ? WHERE id = ?",
		card.Title, card.Description, now(), card.ID,
	)
	if err != nil {
		return fmt.Errorf("updating card %s: %w", card.ID, err)
	}
	return checkAffected(result, "card "+card.ID)
}

// MoveCard places a card in another column of the same board.
func (s *SQLiteStore) MoveCard(ctx context.Context, cardID, columnID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var fromBoard string
	err = tx.GetContext(ctx, &fromBoard, `
		SELECT col.board_id FROM cards c
		INNER JOIN columns col ON col.id = c.column_id
		WHERE c.id = ?`, cardID)
	if err != nil {
		return notFound(err, "card "+cardID)
	}

	var toBoard string
	err = tx.GetContext(ctx, &toBoard,
		"SELECT board_id FROM columns WHERE id = ?", columnID)
	if err != nil {
		return notFound(err, "column "+columnID)
	}
	if fromBoard != toBoard {
		return fmt.Errorf("moving card %s: column %s is on another board", cardID, columnID)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE cards SET column_id = ?, updated_at = ? WHERE id = ?",
		columnID, now(), cardID); err != nil {
		return fmt.Errorf("moving card %s: %w", cardID, err)
	}

	return tx.Commit()
}

// DeleteCard removes a card. Cascades to its entries.
func (s *SQLiteStore) DeleteCard(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM cards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting card %s: %w", id, err)
	}
	return checkAffected(result, "card "+id)
}

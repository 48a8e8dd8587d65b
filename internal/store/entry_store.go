package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/threadboard/internal/model"
)

const entryListColumns = `id, board_id, card_id, from_addr, from_name, recipients,
	subject, message_id, date, body, summary, created_at`

const entryColumns = entryListColumns + ", raw_message"

// MessageIDExists reports whether the board already holds an entry with
// messageID. An empty messageID never exists.
func (s *SQLiteStore) MessageIDExists(ctx context.Context, boardID, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM entries WHERE board_id = ? AND message_id = ?",
		boardID, messageID)
	if err != nil {
		return false, fmt.Errorf("checking message %s: %w", messageID, err)
	}
	return count > 0, nil
}

// FindEntryByMessageID retrieves the entry holding messageID on a board.
func (s *SQLiteStore) FindEntryByMessageID(
	ctx context.Context,
	boardID, messageID string,
) (*model.Entry, error) {
	if messageID == "" {
		return nil, fmt.Errorf("message id must not be empty")
	}
	var e model.Entry
	err := s.db.GetContext(ctx, &e,
		"SELECT "+entryColumns+" FROM entries WHERE board_id = ? AND message_id = ?",
		boardID, messageID)
	if err != nil {
		return nil, notFound(err, "entry "+messageID)
	}
	return &e, nil
}

// CreateEntry attaches an entry to an existing card and refreshes the
// card's activity dates. The board is derived from the card. The
// entry's Tags (by ID) are attached in the same transaction. A message
// identifier already present on the board yields a *DuplicateEntryError
// and leaves the store untouched.
func (s *SQLiteStore) CreateEntry(ctx context.Context, entry *model.Entry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var boardID string
	err = tx.GetContext(ctx, &boardID, `
		SELECT col.board_id FROM cards c
		INNER JOIN columns col ON col.id = c.column_id
		WHERE c.id = ?`, entry.CardID)
	if err != nil {
		return notFound(err, "card "+entry.CardID)
	}
	entry.BoardID = boardID

	if err := insertEntryTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := refreshCardDatesTx(ctx, tx, entry.CardID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateCardWithEntry creates a card and its first entry, with the
// entry's tags, atomically. Either all rows exist afterwards or none do.
func (s *SQLiteStore) CreateCardWithEntry(
	ctx context.Context,
	card *model.Card,
	entry *model.Entry,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var boardID string
	err = tx.GetContext(ctx, &boardID,
		"SELECT board_id FROM columns WHERE id = ?", card.ColumnID)
	if err != nil {
		return notFound(err, "column "+card.ColumnID)
	}

	if err := insertCardTx(ctx, tx, card); err != nil {
		return err
	}

	entry.BoardID = boardID
	entry.CardID = card.ID
	if err := insertEntryTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := refreshCardDatesTx(ctx, tx, card.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing card %s: %w", card.ID, err)
	}

	card.StartDate = &entry.Date
	card.LastUpdateDate = &entry.Date
	card.Entries = []model.Entry{*entry}
	card.EntryCount = 1
	return nil
}

func insertEntryTx(ctx context.Context, tx *sqlx.Tx, entry *model.Entry) error {
	if entry.MessageID != "" {
		var holder string
		err := tx.GetContext(ctx, &holder,
			"SELECT card_id FROM entries WHERE board_id = ? AND message_id = ?",
			entry.BoardID, entry.MessageID)
		switch {
		case err == nil:
			return &DuplicateEntryError{MessageID: entry.MessageID, CardID: holder}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("checking message %s: %w", entry.MessageID, err)
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = now()
	if entry.Date.IsZero() {
		entry.Date = entry.CreatedAt
	}
	entry.Date = entry.Date.UTC()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO entries (
			id, board_id, card_id, from_addr, from_name, recipients,
			subject, message_id, date, body, summary, created_at, raw_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.BoardID, entry.CardID, entry.FromAddr, entry.FromName, entry.Recipients,
		entry.Subject, entry.MessageID, entry.Date, entry.Body, entry.Summary, entry.CreatedAt,
		entry.RawMessage,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &DuplicateEntryError{MessageID: entry.MessageID}
		}
		return fmt.Errorf("creating entry: %w", err)
	}
	return insertEntryTagsTx(ctx, tx, entry.ID, entry.Tags)
}

// refreshCardDatesTx recomputes a card's activity dates from its entries.
// start_date keeps the earliest value it ever held.
func refreshCardDatesTx(ctx context.Context, tx *sqlx.Tx, cardID string) error {
	var first, last time.Time
	if err := tx.GetContext(ctx, &first,
		"SELECT date FROM entries WHERE card_id = ? ORDER BY date ASC LIMIT 1", cardID); err != nil {
		return fmt.Errorf("reading first entry date for card %s: %w", cardID, err)
	}
	if err := tx.GetContext(ctx, &last,
		"SELECT date FROM entries WHERE card_id = ? ORDER BY date DESC LIMIT 1", cardID); err != nil {
		return fmt.Errorf("reading last entry date for card %s: %w", cardID, err)
	}

	var start *time.Time
	if err := tx.GetContext(ctx, &start,
		"SELECT start_date FROM cards WHERE id = ?", cardID); err != nil {
		return fmt.Errorf("reading card %s: %w", cardID, err)
	}
	if start == nil || first.Before(*start) {
		start = &first
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE cards SET start_date = ?, last_update_date = ?, updated_at = ? WHERE id = ?",
		start, last, now(), cardID); err != nil {
		return fmt.Errorf("updating dates for card %s: %w", cardID, err)
	}
	return nil
}

// GetEntryByID retrieves a single entry including its raw message and tags.
func (s *SQLiteStore) GetEntryByID(ctx context.Context, id string) (*model.Entry, error) {
	var e model.Entry
	err := s.db.GetContext(ctx, &e,
		"SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "entry "+id)
	}

	tags, err := s.GetTagsForEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading tags for entry %s: %w", id, err)
	}
	e.Tags = tags

	return &e, nil
}

// GetEntriesForCard retrieves a card's entries in date order, oldest first.
func (s *SQLiteStore) GetEntriesForCard(ctx context.Context, cardID string) ([]model.Entry, error) {
	var entries []model.Entry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT "+entryColumns+" FROM entries WHERE card_id = ? ORDER BY date, created_at",
		cardID)
	if err != nil {
		return nil, fmt.Errorf("querying entries for card %s: %w", cardID, err)
	}
	return entries, nil
}

// UpdateEntrySummary sets the only mutable field of an entry.
func (s *SQLiteStore) UpdateEntrySummary(ctx context.Context, id, summary string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE entries SET summary = ? WHERE id = ?", summary, id)
	if err != nil {
		return fmt.Errorf("updating summary of entry %s: %w", id, err)
	}
	return checkAffected(result, "entry "+id)
}

// CountEntries returns the number of entries on a board.
func (s *SQLiteStore) CountEntries(ctx context.Context, boardID string) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM entries WHERE board_id = ?", boardID); err != nil {
		return 0, fmt.Errorf("counting entries for board %s: %w", boardID, err)
	}
	return count, nil
}

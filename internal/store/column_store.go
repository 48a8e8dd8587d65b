package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/threadboard/internal/model"
)

const columnColumns = "id, board_id, name, position, created_at"

// CreateColumn appends a column to the right of the board's existing columns.
func (s *SQLiteStore) CreateColumn(ctx context.Context, column *model.Column) error {
	if strings.TrimSpace(column.Name) == "" {
		return fmt.Errorf("column name must not be empty")
	}
	if column.BoardID == "" {
		return fmt.Errorf("column board must not be empty")
	}
	if column.ID == "" {
		column.ID = uuid.New().String()
	}
	column.CreatedAt = now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var maxPos int
	err = tx.GetContext(ctx, &maxPos,
		"SELECT COALESCE(MAX(position), -1) FROM columns WHERE board_id = ?", column.BoardID)
	if err != nil {
		return fmt.Errorf("getting max column position: %w", err)
	}
	column.Position = maxPos + 1

	_, err = tx.ExecContext(ctx,
		"INSERT INTO columns ("+columnColumns+") VALUES (?, ?, ?, ?, ?)",
		column.ID, column.BoardID, column.Name, column.Position, column.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("column %q already exists on board", column.Name)
		}
		return fmt.Errorf("creating column: %w", err)
	}

	return tx.Commit()
}

// GetColumns retrieves a board's columns in position order.
func (s *SQLiteStore) GetColumns(ctx context.Context, boardID string) ([]model.Column, error) {
	var columns []model.Column
	err := s.db.SelectContext(ctx, &columns,
		"SELECT "+columnColumns+" FROM columns WHERE board_id = ? ORDER BY position", boardID)
	if err != nil {
		return nil, fmt.Errorf("querying columns for board %s: %w", boardID, err)
	}
	return columns, nil
}

// GetColumnByID retrieves a single column.
func (s *SQLiteStore) GetColumnByID(ctx context.Context, id string) (*model.Column, error) {
	var c model.Column
	err := s.db.GetContext(ctx, &c,
		"SELECT "+columnColumns+" FROM columns WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "column "+id)
	}
	return &c, nil
}

// RenameColumn changes a column's display name.
func (s *SQLiteStore) RenameColumn(ctx context.Context, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("column name must not be empty")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE columns SET name = ? WHERE id = ?", name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("column %q already exists on board", name)
		}
		return fmt.Errorf("renaming column %s: %w", id, err)
	}
	return checkAffected(result, "column "+id)
}

// SwapColumns exchanges the positions of two columns on the same board.
func (s *SQLiteStore) SwapColumns(ctx context.Context, firstID, secondID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var first, second model.Column
	if err := tx.GetContext(ctx, &first,
		"SELECT "+columnColumns+" FROM columns WHERE id = ?", firstID); err != nil {
		return notFound(err, "column "+firstID)
	}
	if err := tx.GetContext(ctx, &second,
		"SELECT "+columnColumns+" FROM columns WHERE id = ?", secondID); err != nil {
		return notFound(err, "column "+secondID)
	}
	if first.BoardID != second.BoardID {
		return fmt.Errorf("columns %s and %s are on different boards", firstID, secondID)
	}

	// Park the first column on a free slot so the unique index holds.
	steps := []struct {
		id  string
		pos int
	}{
		{first.ID, -1},
		{second.ID, first.Position},
		{first.ID, second.Position},
	}
	for _, st := range steps {
		if _, err := tx.ExecContext(ctx,
			"UPDATE columns SET position = ? WHERE id = ?", st.pos, st.id); err != nil {
			return fmt.Errorf("moving column %s: %w", st.id, err)
		}
	}

	return tx.Commit()
}

// DeleteColumn removes a column. Cascades to its cards and their entries.
func (s *SQLiteStore) DeleteColumn(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM columns WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting column %s: %w", id, err)
	}
	return checkAffected(result, "column "+id)
}

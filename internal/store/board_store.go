package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/threadboard/internal/model"
)

const boardColumns = "id, name, slug, description, created_at"

// CreateBoard inserts a new board. Generates a UUID if ID is empty and
// derives the slug from the name when none is given.
func (s *SQLiteStore) CreateBoard(ctx context.Context, board *model.Board) error {
	if strings.TrimSpace(board.Name) == "" {
		return fmt.Errorf("board name must not be empty")
	}
	if board.ID == "" {
		board.ID = uuid.New().String()
	}
	if board.Slug == "" {
		board.Slug = model.Slugify(board.Name)
	}
	board.CreatedAt = now()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO boards ("+boardColumns+") VALUES (?, ?, ?, ?, ?)",
		board.ID, board.Name, board.Slug, board.Description, board.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("board %q already exists", board.Slug)
		}
		return fmt.Errorf("creating board: %w", err)
	}
	return nil
}

// GetBoards retrieves all boards ordered by name.
func (s *SQLiteStore) GetBoards(ctx context.Context) ([]model.Board, error) {
	var boards []model.Board
	err := s.db.SelectContext(ctx, &boards,
		"SELECT "+boardColumns+" FROM boards ORDER BY name, slug")
	if err != nil {
		return nil, fmt.Errorf("querying boards: %w", err)
	}
	return boards, nil
}

// GetBoardByID retrieves a single board.
func (s *SQLiteStore) GetBoardByID(ctx context.Context, id string) (*model.Board, error) {
	var b model.Board
	err := s.db.GetContext(ctx, &b,
		"SELECT "+boardColumns+" FROM boards WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "board "+id)
	}
	return &b, nil
}

// GetBoardBySlug retrieves a single board by its slug.
func (s *SQLiteStore) GetBoardBySlug(ctx context.Context, slug string) (*model.Board, error) {
	var b model.Board
	err := s.db.GetContext(ctx, &b,
		"SELECT "+boardColumns+" FROM boards WHERE slug = ?", slug)
	if err != nil {
		return nil, notFound(err, "board "+slug)
	}
	return &b, nil
}

// DeleteBoard removes a board. Cascades to columns, cards and entries.
func (s *SQLiteStore) DeleteBoard(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM boards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting board %s: %w", id, err)
	}
	return checkAffected(result, "board "+id)
}

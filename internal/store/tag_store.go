package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/threadboard/internal/model"
)

const tagColumns = "id, name, color, created_at"

// CreateTag inserts a new tag.
func (s *SQLiteStore) CreateTag(ctx context.Context, tag *model.Tag) error {
	if strings.TrimSpace(tag.Name) == "" {
		return fmt.Errorf("tag name must not be empty")
	}
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if tag.Color == "" {
		tag.Color = "#6c757d"
	}
	tag.CreatedAt = now()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tags ("+tagColumns+") VALUES (?, ?, ?, ?)",
		tag.ID, tag.Name, tag.Color, tag.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tag %q already exists", tag.Name)
		}
		return fmt.Errorf("creating tag: %w", err)
	}
	return nil
}

// DeleteTag removes a tag. CASCADE on entry_tags removes associations.
func (s *SQLiteStore) DeleteTag(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting tag %s: %w", id, err)
	}
	return checkAffected(result, "tag "+id)
}

// GetTags retrieves all tags ordered by name.
func (s *SQLiteStore) GetTags(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	if err := s.db.SelectContext(ctx, &tags,
		"SELECT "+tagColumns+" FROM tags ORDER BY name"); err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	return tags, nil
}

// GetTagByName retrieves a tag by its unique name.
func (s *SQLiteStore) GetTagByName(ctx context.Context, name string) (*model.Tag, error) {
	var t model.Tag
	err := s.db.GetContext(ctx, &t,
		"SELECT "+tagColumns+" FROM tags WHERE name = ?", name)
	if err != nil {
		return nil, notFound(err, "tag "+name)
	}
	return &t, nil
}

// GetTagsForEntry retrieves all tags associated with an entry.
func (s *SQLiteStore) GetTagsForEntry(
	ctx context.Context,
	entryID string,
) ([]model.Tag, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT t.id, t.name, t.color, t.created_at FROM tags t
		INNER JOIN entry_tags et ON t.id = et.tag_id
		WHERE et.entry_id = ?
		ORDER BY t.name`, entryID)
	if err != nil {
		return nil, fmt.Errorf("querying tags for entry %s: %w", entryID, err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// SetEntryTags replaces all tag associations for an entry.
func (s *SQLiteStore) SetEntryTags(
	ctx context.Context,
	entryID string,
	tagIDs []string,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Remove existing associations.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM entry_tags WHERE entry_id = ?", entryID); err != nil {
		return fmt.Errorf("clearing entry tags: %w", err)
	}

	for _, tagID := range tagIDs {
		if err := insertEntryTagTx(ctx, tx, entryID, tagID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertEntryTagsTx(ctx context.Context, tx *sqlx.Tx, entryID string, tags []model.Tag) error {
	for _, tag := range tags {
		if err := insertEntryTagTx(ctx, tx, entryID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

func insertEntryTagTx(ctx context.Context, tx *sqlx.Tx, entryID, tagID string) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO entry_tags (entry_id, tag_id) VALUES (?, ?)",
		entryID, tagID); err != nil {
		return fmt.Errorf("setting tag %s on entry %s: %w", tagID, entryID, err)
	}
	return nil
}

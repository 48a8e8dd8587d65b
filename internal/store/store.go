package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/threadboard/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DuplicateEntryError reports that a board already holds an entry with
// the given message identifier. CardID names the card holding it.
type DuplicateEntryError struct {
	MessageID string
	CardID    string
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("message %s already imported on card %s", e.MessageID, e.CardID)
}

// IsDuplicateEntry reports whether err (or any error in its chain) is a
// DuplicateEntryError, returning it when it is.
func IsDuplicateEntry(err error) (*DuplicateEntryError, bool) {
	var dup *DuplicateEntryError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}

// Store defines the persistence interface for boards, columns, cards,
// entries and their supporting entities.
type Store interface {
	// === Boards ===

	CreateBoard(ctx context.Context, board *model.Board) error
	GetBoards(ctx context.Context) ([]model.Board, error)
	GetBoardByID(ctx context.Context, id string) (*model.Board, error)
	GetBoardBySlug(ctx context.Context, slug string) (*model.Board, error)
	DeleteBoard(ctx context.Context, id string) error

	// === Columns ===

	CreateColumn(ctx context.Context, column *model.Column) error
	GetColumns(ctx context.Context, boardID string) ([]model.Column, error)
	GetColumnByID(ctx context.Context, id string) (*model.Column, error)
	RenameColumn(ctx context.Context, id, name string) error
	SwapColumns(ctx context.Context, firstID, secondID string) error
	DeleteColumn(ctx context.Context, id string) error

	// === Cards ===

	CreateCard(ctx context.Context, card *model.Card) error
	GetCardByID(ctx context.Context, id string) (*model.Card, error)
	GetCardsByColumn(ctx context.Context, columnID string) ([]model.Card, error)
	GetCardsWithEntries(ctx context.Context, boardID string) ([]model.Card, error)
	UpdateCard(ctx context.Context, card model.Card) error
	MoveCard(ctx context.Context, cardID, columnID string) error
	DeleteCard(ctx context.Context, id string) error

	// === Entries ===

	MessageIDExists(ctx context.Context, boardID, messageID string) (bool, error)
	FindEntryByMessageID(ctx context.Context, boardID, messageID string) (*model.Entry, error)
	CreateEntry(ctx context.Context, entry *model.Entry) error
	CreateCardWithEntry(ctx context.Context, card *model.Card, entry *model.Entry) error
	GetEntryByID(ctx context.Context, id string) (*model.Entry, error)
	GetEntriesForCard(ctx context.Context, cardID string) ([]model.Entry, error)
	UpdateEntrySummary(ctx context.Context, id, summary string) error
	CountEntries(ctx context.Context, boardID string) (int, error)

	// === Correspondents ===

	UpsertCorrespondent(ctx context.Context, c *model.Correspondent) error
	GetCorrespondents(ctx context.Context, boardID string) ([]model.Correspondent, error)
	GetAliasMap(ctx context.Context, boardID string) (model.AliasMap, error)

	// === Tags ===

	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTags(ctx context.Context) ([]model.Tag, error)
	GetTagByName(ctx context.Context, name string) (*model.Tag, error)
	DeleteTag(ctx context.Context, id string) error
	GetTagsForEntry(ctx context.Context, entryID string) ([]model.Tag, error)
	SetEntryTags(ctx context.Context, entryID string, tagIDs []string) error
}

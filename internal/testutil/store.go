package testutil

import (
	"context"
	"testing"

	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestBoard creates a board named name with the default columns and
// returns it together with its columns in position order.
func NewTestBoard(t *testing.T, s store.Store, name string) (*model.Board, []model.Column) {
	t.Helper()
	ctx := context.Background()

	board := &model.Board{Name: name}
	if err := s.CreateBoard(ctx, board); err != nil {
		t.Fatalf("creating test board: %v", err)
	}
	for _, colName := range model.DefaultColumns {
		if err := s.CreateColumn(ctx, &model.Column{BoardID: board.ID, Name: colName}); err != nil {
			t.Fatalf("creating column %s: %v", colName, err)
		}
	}
	cols, err := s.GetColumns(ctx, board.ID)
	if err != nil {
		t.Fatalf("listing columns: %v", err)
	}
	return board, cols
}

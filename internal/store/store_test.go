package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/store"
	"github.com/nhle/threadboard/internal/testutil"
)

func date(day int) time.Time {
	return time.Date(2025, time.March, day, 9, 0, 0, 0, time.UTC)
}

func TestBoardsAndColumns(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	board, cols := testutil.NewTestBoard(t, s, "Budget Committee")
	assert.Equal(t, "budget-committee", board.Slug)
	require.Len(t, cols, len(model.DefaultColumns))
	for i, c := range cols {
		assert.Equal(t, model.DefaultColumns[i], c.Name)
		assert.Equal(t, i, c.Position)
	}

	t.Run("lookup by slug", func(t *testing.T) {
		got, err := s.GetBoardBySlug(ctx, "budget-committee")
		require.NoError(t, err)
		assert.Equal(t, board.ID, got.ID)

		_, err = s.GetBoardBySlug(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate slug rejected", func(t *testing.T) {
		err := s.CreateBoard(ctx, &model.Board{Name: "Budget committee"})
		assert.Error(t, err)
	})

	t.Run("swap keeps positions unique", func(t *testing.T) {
		require.NoError(t, s.SwapColumns(ctx, cols[0].ID, cols[1].ID))
		got, err := s.GetColumns(ctx, board.ID)
		require.NoError(t, err)
		assert.Equal(t, "Waiting", got[0].Name)
		assert.Equal(t, "Todo", got[1].Name)
	})

	t.Run("rename", func(t *testing.T) {
		require.NoError(t, s.RenameColumn(ctx, cols[4].ID, "Done"))
		got, err := s.GetColumnByID(ctx, cols[4].ID)
		require.NoError(t, err)
		assert.Equal(t, "Done", got.Name)

		assert.Error(t, s.RenameColumn(ctx, cols[3].ID, "Done"))
	})
}

func TestCreateCardWithEntry(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	board, cols := testutil.NewTestBoard(t, s, "Board")

	card := &model.Card{ColumnID: cols[0].ID, Title: "Budget 2025"}
	entry := &model.Entry{
		FromAddr:   "alice@example.com",
		Subject:    "Budget 2025",
		MessageID:  "<m1@example.com>",
		Recipients: model.StringList{"board@example.com"},
		Date:       date(1),
		Body:       "Proposal attached.",
		RawMessage: "raw",
	}
	require.NoError(t, s.CreateCardWithEntry(ctx, card, entry))
	assert.Equal(t, board.ID, entry.BoardID)
	assert.Equal(t, card.ID, entry.CardID)

	got, err := s.GetCardByID(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "<m1@example.com>", got.Entries[0].MessageID)
	assert.Equal(t, model.StringList{"board@example.com"}, got.Entries[0].Recipients)
	assert.Equal(t, "raw", got.Entries[0].RawMessage)
	require.NotNil(t, got.StartDate)
	require.NotNil(t, got.LastUpdateDate)
	assert.True(t, got.StartDate.Equal(date(1)))
	assert.True(t, got.LastUpdateDate.Equal(date(1)))

	t.Run("duplicate message id leaves nothing behind", func(t *testing.T) {
		dupCard := &model.Card{ColumnID: cols[0].ID, Title: "Again"}
		dup := &model.Entry{MessageID: "<m1@example.com>", Date: date(2)}
		err := s.CreateCardWithEntry(ctx, dupCard, dup)

		de, ok := store.IsDuplicateEntry(err)
		require.True(t, ok, "want duplicate error, got %v", err)
		assert.Equal(t, card.ID, de.CardID)

		cards, err := s.GetCardsByColumn(ctx, cols[0].ID)
		require.NoError(t, err)
		assert.Len(t, cards, 1)
	})

	t.Run("unknown column", func(t *testing.T) {
		err := s.CreateCardWithEntry(ctx,
			&model.Card{ColumnID: "missing", Title: "x"},
			&model.Entry{Date: date(1)})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCreateEntryWithTags(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	board, cols := testutil.NewTestBoard(t, s, "Board")

	vote := &model.Tag{Name: "vote"}
	require.NoError(t, s.CreateTag(ctx, vote))

	card := &model.Card{ColumnID: cols[0].ID, Title: "Parking"}
	entry := &model.Entry{MessageID: "<t1@x>", Date: date(1), Tags: []model.Tag{*vote}}
	require.NoError(t, s.CreateCardWithEntry(ctx, card, entry))

	tags, err := s.GetTagsForEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "vote", tags[0].Name)

	t.Run("failed tag write rolls back card and entry", func(t *testing.T) {
		bad := &model.Card{ColumnID: cols[0].ID, Title: "Ghost"}
		err := s.CreateCardWithEntry(ctx, bad, &model.Entry{
			MessageID: "<t2@x>",
			Date:      date(2),
			Tags:      []model.Tag{{ID: "missing"}},
		})
		require.Error(t, err)

		n, err := s.CountEntries(ctx, board.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		cards, err := s.GetCardsByColumn(ctx, cols[0].ID)
		require.NoError(t, err)
		assert.Len(t, cards, 1)

		// The message id is free again.
		retry := &model.Entry{CardID: card.ID, MessageID: "<t2@x>", Date: date(2), Tags: []model.Tag{*vote}}
		require.NoError(t, s.CreateEntry(ctx, retry))
		tags, err := s.GetTagsForEntry(ctx, retry.ID)
		require.NoError(t, err)
		assert.Len(t, tags, 1)
	})

	t.Run("failed tag write rolls back entry on existing card", func(t *testing.T) {
		err := s.CreateEntry(ctx, &model.Entry{
			CardID:    card.ID,
			MessageID: "<t3@x>",
			Date:      date(3),
			Tags:      []model.Tag{{ID: "missing"}},
		})
		require.Error(t, err)
		exists, err := s.MessageIDExists(ctx, board.ID, "<t3@x>")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestCreateEntryRefreshesDates(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	_, cols := testutil.NewTestBoard(t, s, "Board")

	card := &model.Card{ColumnID: cols[0].ID, Title: "Thread"}
	require.NoError(t, s.CreateCardWithEntry(ctx, card,
		&model.Entry{MessageID: "<a@x>", Date: date(10)}))

	// An older entry arriving late moves start_date back only.
	require.NoError(t, s.CreateEntry(ctx, &model.Entry{CardID: card.ID, MessageID: "<b@x>", Date: date(5)}))
	require.NoError(t, s.CreateEntry(ctx, &model.Entry{CardID: card.ID, MessageID: "<c@x>", Date: date(20)}))

	got, err := s.GetCardByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(date(5)))
	assert.True(t, got.LastUpdateDate.Equal(date(20)))

	require.Len(t, got.Entries, 3)
	assert.Equal(t, "<b@x>", got.Entries[0].MessageID)
	assert.Equal(t, "<c@x>", got.Entries[2].MessageID)

	t.Run("entries without message id never collide", func(t *testing.T) {
		require.NoError(t, s.CreateEntry(ctx, &model.Entry{CardID: card.ID, Date: date(11)}))
		require.NoError(t, s.CreateEntry(ctx, &model.Entry{CardID: card.ID, Date: date(12)}))
	})

	t.Run("duplicate on existing card", func(t *testing.T) {
		err := s.CreateEntry(ctx, &model.Entry{CardID: card.ID, MessageID: "<a@x>", Date: date(3)})
		_, ok := store.IsDuplicateEntry(err)
		assert.True(t, ok)
	})

	t.Run("unknown card", func(t *testing.T) {
		err := s.CreateEntry(ctx, &model.Entry{CardID: "missing", Date: date(3)})
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})
}

func TestMessageIDScopedPerBoard(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	b1, cols1 := testutil.NewTestBoard(t, s, "One")
	b2, cols2 := testutil.NewTestBoard(t, s, "Two")

	require.NoError(t, s.CreateCardWithEntry(ctx,
		&model.Card{ColumnID: cols1[0].ID, Title: "t"},
		&model.Entry{MessageID: "<shared@x>", Date: date(1)}))
	require.NoError(t, s.CreateCardWithEntry(ctx,
		&model.Card{ColumnID: cols2[0].ID, Title: "t"},
		&model.Entry{MessageID: "<shared@x>", Date: date(1)}))

	for _, b := range []*model.Board{b1, b2} {
		ok, err := s.MessageIDExists(ctx, b.ID, "<shared@x>")
		require.NoError(t, err)
		assert.True(t, ok)

		n, err := s.CountEntries(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	ok, err := s.MessageIDExists(ctx, b1.ID, "")
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := s.FindEntryByMessageID(ctx, b2.ID, "<shared@x>")
	require.NoError(t, err)
	assert.Equal(t, b2.ID, found.BoardID)
}

func TestMoveCard(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	_, cols := testutil.NewTestBoard(t, s, "One")
	_, other := testutil.NewTestBoard(t, s, "Two")

	card := &model.Card{ColumnID: cols[0].ID, Title: "Thread"}
	require.NoError(t, s.CreateCard(ctx, card))

	require.NoError(t, s.MoveCard(ctx, card.ID, cols[2].ID))
	got, err := s.GetCardByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, cols[2].ID, got.ColumnID)
	assert.Nil(t, got.StartDate)

	assert.Error(t, s.MoveCard(ctx, card.ID, other[0].ID))
	assert.ErrorIs(t, s.MoveCard(ctx, "missing", cols[1].ID), store.ErrNotFound)
}

func TestGetCardsWithEntries(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	board, cols := testutil.NewTestBoard(t, s, "Board")

	older := &model.Card{ColumnID: cols[0].ID, Title: "Older"}
	require.NoError(t, s.CreateCardWithEntry(ctx, older,
		&model.Entry{MessageID: "<o@x>", Date: date(1), RawMessage: "big"}))
	newer := &model.Card{ColumnID: cols[1].ID, Title: "Newer"}
	require.NoError(t, s.CreateCardWithEntry(ctx, newer,
		&model.Entry{MessageID: "<n@x>", Date: date(9)}))
	empty := &model.Card{ColumnID: cols[1].ID, Title: "Empty"}
	require.NoError(t, s.CreateCard(ctx, empty))

	cards, err := s.GetCardsWithEntries(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, cards, 3)

	byID := map[string]model.Card{}
	for _, c := range cards {
		byID[c.ID] = c
	}
	assert.Equal(t, 1, byID[older.ID].EntryCount)
	assert.Empty(t, byID[older.ID].Entries[0].RawMessage)
	assert.Equal(t, 0, byID[empty.ID].EntryCount)
	// Cards without entries rank by creation time, which is today.
	assert.Equal(t, empty.ID, cards[0].ID)
	assert.Equal(t, newer.ID, cards[1].ID)
	assert.Equal(t, older.ID, cards[2].ID)
}

func TestEntrySummaryAndTags(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	_, cols := testutil.NewTestBoard(t, s, "Board")

	entry := &model.Entry{MessageID: "<v@x>", Subject: "Vote", Date: date(1)}
	require.NoError(t, s.CreateCardWithEntry(ctx, &model.Card{ColumnID: cols[2].ID, Title: "Vote"}, entry))

	require.NoError(t, s.UpdateEntrySummary(ctx, entry.ID, "+1"))
	assert.ErrorIs(t, s.UpdateEntrySummary(ctx, "missing", "x"), store.ErrNotFound)

	vote := &model.Tag{Name: "vote", Color: "#dc3545"}
	require.NoError(t, s.CreateTag(ctx, vote))
	require.NoError(t, s.SetEntryTags(ctx, entry.ID, []string{vote.ID, vote.ID}))

	got, err := s.GetEntryByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "+1", got.Summary)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "vote", got.Tags[0].Name)

	byName, err := s.GetTagByName(ctx, "vote")
	require.NoError(t, err)
	assert.Equal(t, vote.ID, byName.ID)
}

func TestCorrespondents(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	board, _ := testutil.NewTestBoard(t, s, "Board")

	c := &model.Correspondent{
		BoardID: board.ID,
		Email:   "Alice <Alice@Example.com>",
		Name:    "Alice",
		Aliases: model.StringList{"alice@home.example", "ALICE@example.com"},
	}
	require.NoError(t, s.UpsertCorrespondent(ctx, c))
	assert.Equal(t, "alice@example.com", c.Email)
	assert.Equal(t, model.StringList{"alice@home.example"}, c.Aliases)
	firstID := c.ID

	again := &model.Correspondent{BoardID: board.ID, Email: "alice@example.com", Name: "Alice A."}
	require.NoError(t, s.UpsertCorrespondent(ctx, again))
	assert.Equal(t, firstID, again.ID)
	assert.Equal(t, "Alice A.", again.Name)

	all, err := s.GetCorrespondents(ctx, board.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.UpsertCorrespondent(ctx, &model.Correspondent{
		BoardID: board.ID, Email: "alice@example.com",
		Aliases: model.StringList{"a@work.example"},
	}))
	aliases, err := s.GetAliasMap(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", aliases.Resolve("A <a@work.example>"))
	assert.Equal(t, "bob@example.com", aliases.Resolve("bob@example.com"))
}

func TestMigrationsIdempotent(t *testing.T) {
	path := t.TempDir() + "/board.db"

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.GetBoards(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

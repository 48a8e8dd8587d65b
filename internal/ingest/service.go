// Package ingest coordinates turning raw email text into a card entry:
// parse, check for an earlier import of the same message, rank the
// board's cards and persist the entry on the card the user chose.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nhle/threadboard/internal/logging"
	"github.com/nhle/threadboard/internal/mailparse"
	"github.com/nhle/threadboard/internal/match"
	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/store"
)

// NoSubjectTitle names new cards created from records without a subject.
const NoSubjectTitle = "(no subject)"

// Outcome is the result kind of an ingestion.
type Outcome int

const (
	// OutcomeCreated means a new entry was stored.
	OutcomeCreated Outcome = iota
	// OutcomeConflict means the message was already imported.
	OutcomeConflict
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// NewCard asks for a new card to hold the entry. An empty ColumnID means
// the board's first column; an empty Title means the record's subject.
type NewCard struct {
	ColumnID    string
	Title       string
	Description string
}

// Request is one ingestion. Exactly one of CardID and NewCard is set.
type Request struct {
	// Board is the board slug.
	Board   string
	Raw     string
	CardID  string
	NewCard *NewCard
	Summary string

	// Tags names existing tags to attach to the new entry.
	Tags []string
}

// Result describes what happened. On OutcomeConflict, Entry and Card
// are the earlier import and the card that holds it.
type Result struct {
	Outcome Outcome
	Record  mailparse.Record
	Entry   *model.Entry
	Card    *model.Card

	// Unprotected is set when the record had no Message-ID, so nothing
	// prevents importing it again.
	Unprotected bool
}

// Shortlist is the ranked candidate list for a record.
type Shortlist struct {
	Board      *model.Board
	Record     mailparse.Record
	Candidates []match.Candidate
}

// Service coordinates ingestion against a store.
type Service struct {
	store  store.Store
	cfg    model.AppConfig
	logger *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewService creates a Service. A nil logger discards output.
func NewService(s store.Store, cfg *model.AppConfig, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = model.DefaultAppConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		store:  s,
		cfg:    *cfg,
		logger: logging.WithOperation(logger, "ingest"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Candidates parses raw and ranks the board's cards for it. A record
// already imported on the board ranks its holder card first.
func (s *Service) Candidates(ctx context.Context, boardSlug, raw string) (*Shortlist, error) {
	board, err := s.board(ctx, boardSlug)
	if err != nil {
		return nil, err
	}
	rec := mailparse.Parse(raw)

	cards, err := s.store.GetCardsWithEntries(ctx, board.ID)
	if err != nil {
		return nil, retryable("loading cards", err)
	}
	aliases, err := s.store.GetAliasMap(ctx, board.ID)
	if err != nil {
		return nil, retryable("loading aliases", err)
	}

	opts := match.OptionsFromConfig(s.cfg.Matcher)
	opts.Now = s.now()
	candidates := match.Rank(rec, cards, aliases, opts)

	s.logger.DebugContext(ctx, "ranked candidates",
		logging.Board(board.Slug), logging.MessageID(rec.MessageID),
		slog.Int("cards", len(cards)), slog.Int("candidates", len(candidates)))

	return &Shortlist{Board: board, Record: rec, Candidates: candidates}, nil
}

// Ingest stores req.Raw as an entry. Re-ingesting a message whose
// Message-ID is already on the board returns OutcomeConflict with the
// holder card and writes nothing, whatever the requested target.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Raw) == "" {
		return nil, invalid("message text is empty")
	}
	if (req.CardID == "") == (req.NewCard == nil) {
		return nil, invalid("choose either an existing card or a new card")
	}

	board, err := s.board(ctx, req.Board)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(logging.Board(board.Slug))

	rec := mailparse.Parse(req.Raw)
	result := &Result{Record: rec}

	if rec.HasMessageID() {
		log = log.With(logging.MessageID(rec.MessageID))
		exists, err := s.store.MessageIDExists(ctx, board.ID, rec.MessageID)
		if err != nil {
			log.ErrorContext(ctx, "existence check failed", logging.Err(err))
			return nil, retryable("checking message id", err)
		}
		if exists {
			return s.conflict(ctx, log, board, result, "")
		}
	} else {
		if s.cfg.Ingest.RequireMessageID {
			return nil, invalid("message has no Message-ID header")
		}
		result.Unprotected = true
		log.WarnContext(ctx, "ingesting message without Message-ID; duplicates cannot be detected")
	}

	tags, err := s.resolveTags(ctx, req.Tags)
	if err != nil {
		return nil, err
	}

	entry := s.entryFromRecord(rec, req.Summary)
	entry.Tags = tags
	var cardID string

	if req.NewCard != nil {
		card, err := s.newCard(ctx, board, rec, *req.NewCard)
		if err != nil {
			return nil, err
		}
		err = s.store.CreateCardWithEntry(ctx, card, entry)
		if dup, ok := store.IsDuplicateEntry(err); ok {
			return s.conflict(ctx, log, board, result, dup.CardID)
		}
		if err != nil {
			log.ErrorContext(ctx, "creating card failed", logging.Err(err))
			return nil, retryable("creating card", err)
		}
		cardID = card.ID
	} else {
		if err := s.checkCard(ctx, board, req.CardID); err != nil {
			return nil, err
		}
		entry.CardID = req.CardID
		err = s.store.CreateEntry(ctx, entry)
		if dup, ok := store.IsDuplicateEntry(err); ok {
			return s.conflict(ctx, log, board, result, dup.CardID)
		}
		if err != nil {
			log.ErrorContext(ctx, "creating entry failed", logging.Err(err))
			return nil, retryable("creating entry", err)
		}
		cardID = req.CardID
	}

	card, err := s.store.GetCardByID(ctx, cardID)
	if err != nil {
		return nil, retryable("reloading card", err)
	}

	result.Outcome = OutcomeCreated
	result.Entry = entry
	result.Card = card
	log.InfoContext(ctx, "entry created", logging.Card(card.ID), slog.String("entry", entry.ID))
	return result, nil
}

// conflict fills result with the earlier import. holderCardID may be
// empty, in which case the holder is looked up by Message-ID.
func (s *Service) conflict(
	ctx context.Context,
	log *slog.Logger,
	board *model.Board,
	result *Result,
	holderCardID string,
) (*Result, error) {
	existing, err := s.store.FindEntryByMessageID(ctx, board.ID, result.Record.MessageID)
	if err != nil {
		return nil, retryable("loading existing entry", err)
	}
	if holderCardID == "" {
		holderCardID = existing.CardID
	}
	card, err := s.store.GetCardByID(ctx, holderCardID)
	if err != nil {
		return nil, retryable("loading existing card", err)
	}

	result.Outcome = OutcomeConflict
	result.Entry = existing
	result.Card = card
	log.InfoContext(ctx, "message already imported", logging.Card(card.ID))
	return result, nil
}

func (s *Service) board(ctx context.Context, slug string) (*model.Board, error) {
	if slug == "" {
		slug = s.cfg.Board
	}
	board, err := s.store.GetBoardBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid("board %q does not exist (run setup first)", slug)
	}
	if err != nil {
		return nil, retryable("loading board", err)
	}
	return board, nil
}

func (s *Service) entryFromRecord(rec mailparse.Record, summary string) *model.Entry {
	date := rec.Date
	if date.IsZero() {
		date = s.now()
	}
	return &model.Entry{
		FromAddr:   rec.FromAddr,
		FromName:   rec.FromName,
		Recipients: model.StringList(rec.Recipients),
		Subject:    rec.Subject,
		MessageID:  rec.MessageID,
		Date:       date.UTC(),
		Body:       rec.Body,
		RawMessage: rec.Raw,
		Summary:    strings.TrimSpace(summary),
	}
}

func (s *Service) newCard(
	ctx context.Context,
	board *model.Board,
	rec mailparse.Record,
	nc NewCard,
) (*model.Card, error) {
	columns, err := s.store.GetColumns(ctx, board.ID)
	if err != nil {
		return nil, retryable("loading columns", err)
	}
	if len(columns) == 0 {
		return nil, invalid("board %q has no columns", board.Slug)
	}

	columnID := columns[0].ID
	if nc.ColumnID != "" {
		columnID = ""
		for _, c := range columns {
			if c.ID == nc.ColumnID || strings.EqualFold(c.Name, nc.ColumnID) {
				columnID = c.ID
				break
			}
		}
		if columnID == "" {
			return nil, invalid("column %q is not on board %q", nc.ColumnID, board.Slug)
		}
	}

	title := strings.TrimSpace(nc.Title)
	if title == "" {
		title = strings.TrimSpace(rec.Subject)
	}
	if title == "" {
		title = NoSubjectTitle
	}

	return &model.Card{
		ColumnID:    columnID,
		Title:       title,
		Description: nc.Description,
	}, nil
}

// checkCard verifies that cardID exists on board.
func (s *Service) checkCard(ctx context.Context, board *model.Board, cardID string) error {
	card, err := s.store.GetCardByID(ctx, cardID)
	if errors.Is(err, store.ErrNotFound) {
		return invalid("card %q does not exist", cardID)
	}
	if err != nil {
		return retryable("loading card", err)
	}
	column, err := s.store.GetColumnByID(ctx, card.ColumnID)
	if err != nil {
		return retryable("loading column", err)
	}
	if column.BoardID != board.ID {
		return invalid("card %q is not on board %q", cardID, board.Slug)
	}
	return nil
}

func (s *Service) resolveTags(ctx context.Context, names []string) ([]model.Tag, error) {
	var tags []model.Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := s.store.GetTagByName(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalid("tag %q does not exist", name)
		}
		if err != nil {
			return nil, retryable("loading tag", err)
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

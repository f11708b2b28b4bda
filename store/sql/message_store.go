package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-inbox/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// MessageStore persists inbound messages keyed by their provider-assigned
// message_id. The unique index on message_id is what makes Insert idempotent
// under concurrent deliveries of the same webhook.
type MessageStore struct {
	db   *bun.DB
	repo repository.Repository[*messageRecord]
}

func NewMessageStore(db *bun.DB) (*MessageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*messageRecord](db, messageHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid message repository wiring: %w", err)
		}
	}
	return &MessageStore{
		db:   db,
		repo: repo,
	}, nil
}

// Insert stores the candidate unless a row with the same message_id already
// exists. It reports true, alongside the stored row, when the message was a
// duplicate; the candidate is discarded in that case. Both paths return the
// row as the database persisted it, so every observer of a message id sees
// identical data regardless of which delivery they rode in on.
func (s *MessageStore) Insert(ctx context.Context, candidate core.Message) (core.Message, bool, error) {
	if s == nil || s.db == nil {
		return core.Message{}, false, fmt.Errorf("sqlstore: message store is not configured")
	}
	if strings.TrimSpace(candidate.MessageID) == "" {
		return core.Message{}, false, fmt.Errorf("sqlstore: message id is required")
	}

	record := messageFromDomain(candidate)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			existing, getErr := s.getByMessageID(ctx, candidate.MessageID)
			if getErr != nil {
				return core.Message{}, false, getErr
			}
			return existing, true, nil
		}
		return core.Message{}, false, err
	}

	stored, err := s.getByMessageID(ctx, candidate.MessageID)
	if err != nil {
		return core.Message{}, false, err
	}
	return stored, false, nil
}

func (s *MessageStore) getByMessageID(ctx context.Context, messageID string) (core.Message, error) {
	record := &messageRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.message_id = ?", strings.TrimSpace(messageID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Message{}, fmt.Errorf("sqlstore: message not found for message id %q", messageID)
		}
		return core.Message{}, err
	}
	return messageToDomain(record), nil
}

// List returns one window of the filtered messages ordered by ts, with
// message_id breaking ties, so repeated reads page through a stable sequence.
func (s *MessageStore) List(ctx context.Context, req core.ListRequest) (core.ListPage, error) {
	if s == nil || s.repo == nil {
		return core.ListPage{}, fmt.Errorf("sqlstore: message store is not configured")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = core.DefaultListLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	selectors := []repository.SelectCriteria{
		repository.OrderBy("ts ASC"),
		repository.OrderBy("message_id ASC"),
		repository.SelectPaginate(limit, offset),
	}
	if from := strings.TrimSpace(req.Filter.From); from != "" {
		selectors = append(selectors, repository.SelectBy("from_msisdn", "=", from))
	}
	if req.Filter.Since != nil {
		// Bound the predicate through a raw bun placeholder so the value is
		// encoded the same way the stored ts column was written; a text-side
		// rendering of the bound compares lexicographically on sqlite and
		// silently excludes same-date rows.
		since := req.Filter.Since.UTC()
		selectors = append(selectors, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.ts >= ?", since)
		}))
	}
	if query := strings.TrimSpace(req.Filter.Query); query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		selectors = append(selectors, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.text IS NOT NULL AND LOWER(?TableAlias.text) LIKE ?", pattern)
		}))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.ListPage{}, err
	}
	items := make([]core.Message, 0, len(records))
	for _, record := range records {
		items = append(items, messageToDomain(record))
	}
	return core.ListPage{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// Stats computes all aggregates inside one transaction so the counts, the
// sender leaderboard, and the ts bounds describe the same set of rows.
func (s *MessageStore) Stats(ctx context.Context) (core.Stats, error) {
	if s == nil || s.db == nil {
		return core.Stats{}, fmt.Errorf("sqlstore: message store is not configured")
	}

	stats := core.Stats{}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var (
			total   int
			senders int
		)
		if err := tx.NewSelect().
			Model((*messageRecord)(nil)).
			ColumnExpr("COUNT(*)").
			ColumnExpr("COUNT(DISTINCT from_msisdn)").
			Scan(ctx, &total, &senders); err != nil {
			return err
		}
		stats.TotalMessages = total
		stats.DistinctSenders = senders

		// MIN(ts)/MAX(ts) aggregates come back as raw driver strings on
		// sqlite and bypass the dialect's time decoding, so the bounds are
		// read through the model instead.
		if total > 0 {
			first := &messageRecord{}
			if err := tx.NewSelect().
				Model(first).
				Column("ts").
				OrderExpr("ts ASC").
				OrderExpr("message_id ASC").
				Limit(1).
				Scan(ctx); err != nil {
				return err
			}
			last := &messageRecord{}
			if err := tx.NewSelect().
				Model(last).
				Column("ts").
				OrderExpr("ts DESC").
				OrderExpr("message_id DESC").
				Limit(1).
				Scan(ctx); err != nil {
				return err
			}
			earliest := first.Timestamp.UTC()
			latest := last.Timestamp.UTC()
			stats.Earliest = &earliest
			stats.Latest = &latest
		}

		var rows []struct {
			Sender string `bun:"sender"`
			Total  int    `bun:"total"`
		}
		if err := tx.NewSelect().
			Model((*messageRecord)(nil)).
			ColumnExpr("from_msisdn AS sender").
			ColumnExpr("COUNT(*) AS total").
			GroupExpr("from_msisdn").
			OrderExpr("total DESC").
			OrderExpr("sender ASC").
			Limit(core.MaxTopSenders).
			Scan(ctx, &rows); err != nil {
			return err
		}
		stats.TopSenders = make([]core.SenderCount, 0, len(rows))
		for _, row := range rows {
			stats.TopSenders = append(stats.TopSenders, core.SenderCount{
				Sender: row.Sender,
				Count:  row.Total,
			})
		}
		return nil
	})
	if err != nil {
		return core.Stats{}, err
	}
	return stats, nil
}

// Ready reports whether the backing table is reachable.
func (s *MessageStore) Ready(ctx context.Context) bool {
	if s == nil || s.db == nil {
		return false
	}
	_, err := s.db.NewSelect().Model((*messageRecord)(nil)).Limit(1).Count(ctx)
	return err == nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

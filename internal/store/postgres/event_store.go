package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/predicthub/predicthub/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. The
// (tx_hash, log_index) UNIQUE constraint is the dedup authority.
type EventStore struct {
	db Querier
}

// NewEventStore creates a new EventStore over the given Querier.
func NewEventStore(db Querier) *EventStore {
	return &EventStore{db: db}
}

const eventSelectCols = `id, tx_hash, log_index, event_name, market_id, user_address,
	payload, duplicate, processed_at, created_at`

func scanEvent(row pgx.Row) (domain.OnchainEvent, error) {
	var ev domain.OnchainEvent
	var eventName string
	var marketID *string
	var payload []byte

	err := row.Scan(
		&ev.ID, &ev.TxHash, &ev.LogIndex, &eventName, &marketID, &ev.UserAddress,
		&payload, &ev.Duplicate, &ev.ProcessedAt, &ev.CreatedAt,
	)
	if err != nil {
		return domain.OnchainEvent{}, err
	}
	ev.EventName = domain.OnchainEventName(eventName)
	if marketID != nil {
		ev.MarketID = *marketID
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &ev.Payload); err != nil {
			return domain.OnchainEvent{}, fmt.Errorf("decode payload: %w", err)
		}
	}
	return ev, nil
}

// Record inserts the event if its (tx_hash, log_index) key is new. When the
// key already exists the stored row is returned with created=false so the
// caller can mark the replay duplicate without re-applying it.
func (s *EventStore) Record(ctx context.Context, ev domain.OnchainEvent) (domain.OnchainEvent, bool, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return domain.OnchainEvent{}, false, fmt.Errorf("postgres: encode event payload: %w", err)
	}
	if ev.Payload == nil {
		payload = []byte("{}")
	}

	var marketID *string
	if ev.MarketID != "" {
		marketID = &ev.MarketID
	}

	const query = `
		INSERT INTO onchain_events (id, tx_hash, log_index, event_name, market_id, user_address, payload, duplicate, processed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tx_hash, log_index) DO NOTHING`

	tag, err := s.db.Exec(ctx, query,
		ev.ID, ev.TxHash, ev.LogIndex, string(ev.EventName), marketID, ev.UserAddress,
		payload, ev.Duplicate, ev.ProcessedAt, ev.CreatedAt,
	)
	if err != nil {
		return domain.OnchainEvent{}, false, fmt.Errorf("postgres: record event %s/%d: %w", ev.TxHash, ev.LogIndex, err)
	}

	created := tag.RowsAffected() > 0
	if created {
		return ev, true, nil
	}

	row := s.db.QueryRow(ctx,
		`SELECT `+eventSelectCols+` FROM onchain_events WHERE tx_hash = $1 AND log_index = $2`,
		ev.TxHash, ev.LogIndex)
	stored, err := scanEvent(row)
	if err != nil {
		return domain.OnchainEvent{}, false, fmt.Errorf("postgres: reread event %s/%d: %w", ev.TxHash, ev.LogIndex, err)
	}
	return stored, false, nil
}

// MarkProcessed stamps the time an event's effects were applied.
func (s *EventStore) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE onchain_events SET processed_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("postgres: mark event %s processed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByMarket returns a market's event log, newest first.
func (s *EventStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.OnchainEvent, error) {
	query := `SELECT ` + eventSelectCols + ` FROM onchain_events WHERE market_id = $1 ORDER BY created_at DESC`
	args := []any{marketID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events for %s: %w", marketID, err)
	}
	defer rows.Close()

	var events []domain.OnchainEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Compile-time interface check.
var _ domain.EventStore = (*EventStore)(nil)

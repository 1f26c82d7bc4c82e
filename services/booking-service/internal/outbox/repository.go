package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository reads and writes outbox_events. It holds no pool: every call runs on the
// caller's transaction so events commit or roll back with the change they describe.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Record is one stored event; field order matches the FetchUnpublished select list.
type Record struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO outbox_events
			(event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		evt.EventID,
		evt.AggregateType,
		evt.AggregateID,
		evt.EventType,
		evt.Payload,
		evt.Traceparent,
		evt.Tracestate,
	)
	return err
}

// FetchUnpublished claims up to limit pending events in insertion order. Rows locked by a
// concurrent publisher are skipped.
func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, event_id::text, aggregate_type, aggregate_id, event_type, payload,
			traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Record])
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`, ids)
	return err
}

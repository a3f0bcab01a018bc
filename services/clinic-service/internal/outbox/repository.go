package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	otelx "github.com/clinicflow/clinicflow/libs/otel"
)

// Record is an outbox row waiting to be published.
type Record struct {
	ID      int64
	EventID string
	Event
	Trace     otelx.TraceCarrier
	CreatedAt time.Time
}

// Repository keeps no state of its own; every call runs on the transaction
// it is given. Writes share the caller's transaction so an event commits
// together with the change it describes.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert appends evt with the trace context active in ctx.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	traceparent, tracestate := otelx.CaptureTrace(ctx).Columns()
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, traceparent, tracestate)
	return err
}

// FetchUnpublished locks up to limit pending rows in id order. Rows locked by
// another publisher are skipped, not waited on.
func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id::text, aggregate_type, aggregate_id, event_type, payload,
			COALESCE(traceparent, ''), COALESCE(tracestate, ''), created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rcd Record
		err := row.Scan(
			&rcd.ID, &rcd.EventID,
			&rcd.AggregateType, &rcd.AggregateID, &rcd.EventType, &rcd.Payload,
			&rcd.Trace.Traceparent, &rcd.Trace.Tracestate,
			&rcd.CreatedAt,
		)
		return rcd, err
	})
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]int64, len(records))
	for i, rcd := range records {
		ids[i] = rcd.ID
	}
	_, err := tx.Exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`, ids)
	return err
}

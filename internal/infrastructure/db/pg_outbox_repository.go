package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

// PgOutboxRepository guarda los comandos de sync hasta que el dispatcher los publica.
type PgOutboxRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPgOutboxRepository(db *sql.DB) *PgOutboxRepository {
	return &PgOutboxRepository{db: db, now: time.Now}
}

const insertOutboxSQL = `
    insert into outbox_messages (id, type, payload_json, occurred_at_utc, retry_count)
    values ($1, $2, $3, $4, $5)
    on conflict (id) do nothing
`

// Insert is idempotent on the message id.
func (r *PgOutboxRepository) Insert(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	occurred := r.now().UTC()
	if msg.OccurredAtUtc != 0 {
		occurred = time.Unix(msg.OccurredAtUtc, 0).UTC()
	}
	if _, err := r.db.ExecContext(ctx, insertOutboxSQL,
		msg.ID, msg.Type, msg.PayloadJSON, occurred, msg.RetryCount,
	); err != nil {
		return wrap("insert outbox message", err)
	}
	return nil
}

const pendingOutboxSQL = `
    select id, type, payload_json, occurred_at_utc, retry_count, processed_at_utc
    from outbox_messages
    where processed_at_utc is null
      and retry_count < $1
    order by occurred_at_utc, id
    limit $2
`

func (r *PgOutboxRepository) GetPendingBatch(ctx context.Context, maxRetry, batchSize int) ([]domain.OutboxMessage, error) {
	rows, err := r.db.QueryContext(ctx, pendingOutboxSQL, maxRetry, batchSize)
	if err != nil {
		return nil, wrap("pending outbox batch", err)
	}
	defer rows.Close()

	var out []domain.OutboxMessage
	for rows.Next() {
		msg, err := scanOutboxMessage(rows)
		if err != nil {
			return nil, wrap("scan outbox message", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func scanOutboxMessage(row interface{ Scan(...any) error }) (domain.OutboxMessage, error) {
	var (
		msg       domain.OutboxMessage
		occurred  time.Time
		processed sql.NullTime
	)
	if err := row.Scan(&msg.ID, &msg.Type, &msg.PayloadJSON, &occurred, &msg.RetryCount, &processed); err != nil {
		return domain.OutboxMessage{}, err
	}
	msg.OccurredAtUtc = occurred.Unix()
	if processed.Valid {
		ts := processed.Time.Unix()
		msg.ProcessedAtUtc = &ts
	}
	return msg, nil
}

const saveOutboxSQL = `
    update outbox_messages
    set retry_count = $2,
        processed_at_utc = coalesce($3, processed_at_utc)
    where id = $1
`

// Save persists retry count and, once published, the processed time.
func (r *PgOutboxRepository) Save(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.ID == uuid.Nil {
		return errors.New("outbox message id is empty")
	}
	// NullTime tipado: el driver necesita conocer el tipo de $3 aunque sea null
	var processed sql.NullTime
	if msg.ProcessedAtUtc != nil {
		processed = sql.NullTime{Time: time.Unix(*msg.ProcessedAtUtc, 0).UTC(), Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, saveOutboxSQL, msg.ID, msg.RetryCount, processed); err != nil {
		return wrap("save outbox message", err)
	}
	return nil
}

// PurgeProcessed drops published messages older than before.
func (r *PgOutboxRepository) PurgeProcessed(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        delete from outbox_messages
        where processed_at_utc is not null
          and processed_at_utc < $1
    `, before.UTC())
	if err != nil {
		return 0, wrap("purge outbox", err)
	}
	return res.RowsAffected()
}

func wrap(op string, err error) error { return fmt.Errorf("%s: %w", op, err) }

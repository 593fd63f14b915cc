package application

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

// OutboxWriter stores integration commands for the dispatcher to publish.
type OutboxWriter interface {
	Enqueue(ctx context.Context, ev primitives.Event) error
}

type outboxWriter struct {
	repo domain.OutboxRepository
	now  func() time.Time
}

func NewOutboxWriter(repo domain.OutboxRepository) OutboxWriter {
	return &outboxWriter{repo: repo, now: time.Now}
}

func (w *outboxWriter) Enqueue(ctx context.Context, ev primitives.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	// routing key manda; si no hay, el nombre del tipo
	eventType := ev.GetRoutingKey()
	if eventType == "" {
		eventType = typeNameOf(ev)
	}

	return w.repo.Insert(ctx, domain.OutboxMessage{
		ID:            uuid.New(),
		Type:          eventType,
		PayloadJSON:   string(payload),
		OccurredAtUtc: w.now().UTC().Unix(),
	})
}

func typeNameOf(ev primitives.Event) string {
	if ev == nil {
		return ""
	}
	t := reflect.TypeOf(ev)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

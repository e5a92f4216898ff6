package ports

import (
	"context"

	"github.com/rohvvn/tubecast/internal/domain"
)

type JobRepository interface {
	Create(ctx context.Context, job domain.IngestJob) (domain.IngestJob, error)
	Get(ctx context.Context, id string) (domain.IngestJob, error)
	List(ctx context.Context, limit int) ([]domain.IngestJob, error)
	// ClaimNextQueued passe le plus vieux job "queued" à l'état "running" et le renvoie.
	// Renvoie ErrNotFound s'il n'y a aucun job à exécuter.
	ClaimNextQueued(ctx context.Context) (domain.IngestJob, error)
	MarkCompleted(ctx context.Context, id, episodeID string) (domain.IngestJob, error)
	MarkFailed(ctx context.Context, id, code, message string) (domain.IngestJob, error)
	CountByOwner(ctx context.Context, owner string) (int, error)
}

type EventBus interface {
	Publish(topic string, payload []byte)
	Subscribe() (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}

package ports

import (
	"context"

	"github.com/rohvvn/tubecast/internal/domain"
)

// EpisodeRepository est le magasin durable des épisodes, partitionné par owner.
// Put persiste de façon synchrone; renvoie ErrConflict si le couple
// (owner, fingerprint) existe déjà.
type EpisodeRepository interface {
	Put(ctx context.Context, ep domain.Episode) (domain.Episode, error)
	GetByFingerprint(ctx context.Context, owner, fingerprint string) (domain.Episode, error)
	GetByID(ctx context.Context, id string) (domain.Episode, error)
	// ListByOwner renvoie les épisodes du plus récemment acquis au plus ancien.
	ListByOwner(ctx context.Context, owner string) ([]domain.Episode, error)
	Delete(ctx context.Context, id string) error
	CountByOwner(ctx context.Context, owner string) (int, error)
}

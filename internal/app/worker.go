package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rohvvn/tubecast/internal/domain"
	"github.com/rohvvn/tubecast/internal/ports"
)

type WorkerOptions struct {
	PollInterval time.Duration
}

func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{PollInterval: 750 * time.Millisecond}
}

// Worker dépile les jobs d'ingestion "queued" et les exécute via
// IngestService. L'acquisition est bloquante et court jusqu'au bout.
type Worker struct {
	logger zerolog.Logger
	repo   ports.JobRepository
	ingest *IngestService
	bus    ports.EventBus
	opts   WorkerOptions
}

func NewWorker(logger zerolog.Logger, repo ports.JobRepository, ingest *IngestService, bus ports.EventBus, opts WorkerOptions) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultWorkerOptions().PollInterval
	}
	return &Worker{logger: logger, repo: repo, ingest: ingest, bus: bus, opts: opts}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.repo.ClaimNextQueued(ctx)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				w.logger.Error().Err(err).Msg("claim next job failed")
				continue
			}

			w.execute(ctx, job)
		}
	}
}

func (w *Worker) execute(ctx context.Context, job domain.IngestJob) {
	w.logger.Info().Str("job_id", job.ID).Str("url", job.SourceURL).Msg("job claimed")
	publishJobEvent(w.bus, "ingest.started", job)

	ep, err := w.ingest.Ingest(ctx, job.Owner, job.SourceURL)
	if err != nil {
		// Un doublon entre l'enqueue et l'exécution n'est pas un échec:
		// le record existant fait foi.
		var dup *DuplicateError
		if errors.As(err, &dup) {
			completed, err2 := w.repo.MarkCompleted(ctx, job.ID, dup.Existing.ID)
			if err2 != nil {
				w.logger.Warn().Err(err2).Str("job_id", job.ID).Msg("failed to mark duplicate job completed")
				return
			}
			publishJobEvent(w.bus, "ingest.completed", completed)
			return
		}

		code := ErrorCode(err)
		w.logger.Error().Err(err).Str("job_id", job.ID).Str("code", code).Msg("ingestion failed")
		failed, err2 := w.repo.MarkFailed(ctx, job.ID, code, err.Error())
		if err2 != nil {
			w.logger.Warn().Err(err2).Str("job_id", job.ID).Msg("failed to mark job failed")
			return
		}
		publishJobEvent(w.bus, "ingest.failed", failed)
		return
	}

	completed, err := w.repo.MarkCompleted(ctx, job.ID, ep.ID)
	if err != nil {
		w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to mark job completed")
		return
	}
	publishJobEvent(w.bus, "ingest.completed", completed)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rohvvn/tubecast/internal/domain"
	"github.com/rohvvn/tubecast/internal/ports"
)

type JobsRepository struct {
	db *sql.DB
}

func NewJobsRepository(db *sql.DB) *JobsRepository {
	return &JobsRepository{db: db}
}

const jobColumns = `id, owner, source_url, state, created_at, updated_at, episode_id, error_code, error_message`

func (r *JobsRepository) Create(ctx context.Context, job domain.IngestJob) (domain.IngestJob, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ingest_jobs(`+jobColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.Owner, job.SourceURL, string(job.State),
		job.CreatedAt.UTC().Format(time.RFC3339), job.UpdatedAt.UTC().Format(time.RFC3339),
		job.EpisodeID, job.ErrorCode, job.ErrorMessage)
	if err != nil {
		return domain.IngestJob{}, err
	}
	return r.Get(ctx, job.ID)
}

func (r *JobsRepository) Get(ctx context.Context, id string) (domain.IngestJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM ingest_jobs WHERE id = ?
	`, id)
	return scanJob(row)
}

func (r *JobsRepository) List(ctx context.Context, limit int) ([]domain.IngestJob, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM ingest_jobs ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.IngestJob{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *JobsRepository) ClaimNextQueued(ctx context.Context) (domain.IngestJob, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.IngestJob{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id
		FROM ingest_jobs
		WHERE state = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, string(domain.JobQueued)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.IngestJob{}, ports.ErrNotFound
		}
		return domain.IngestJob{}, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE ingest_jobs
		SET state = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`, string(domain.JobRunning), time.Now().UTC().Format(time.RFC3339), id, string(domain.JobQueued))
	if err != nil {
		return domain.IngestJob{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.IngestJob{}, ports.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return domain.IngestJob{}, err
	}
	return r.Get(ctx, id)
}

func (r *JobsRepository) MarkCompleted(ctx context.Context, id, episodeID string) (domain.IngestJob, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ingest_jobs
		SET state = ?, episode_id = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`, string(domain.JobCompleted), episodeID, time.Now().UTC().Format(time.RFC3339), id, string(domain.JobRunning))
	if err != nil {
		return domain.IngestJob{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.IngestJob{}, ports.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *JobsRepository) MarkFailed(ctx context.Context, id, code, message string) (domain.IngestJob, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ingest_jobs
		SET state = ?, error_code = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND state IN (?, ?)
	`, string(domain.JobFailed), code, message, time.Now().UTC().Format(time.RFC3339),
		id, string(domain.JobQueued), string(domain.JobRunning))
	if err != nil {
		return domain.IngestJob{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.IngestJob{}, ports.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *JobsRepository) CountByOwner(ctx context.Context, owner string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingest_jobs WHERE owner = ?`, owner).Scan(&n)
	return n, err
}

func scanJob(row rowScanner) (domain.IngestJob, error) {
	var j domain.IngestJob
	var state, createdAt, updatedAt string
	err := row.Scan(&j.ID, &j.Owner, &j.SourceURL, &state, &createdAt, &updatedAt,
		&j.EpisodeID, &j.ErrorCode, &j.ErrorMessage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.IngestJob{}, ports.ErrNotFound
		}
		return domain.IngestJob{}, err
	}
	j.State = domain.JobState(state)
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return j, nil
}

var _ ports.JobRepository = (*JobsRepository)(nil)

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rohvvn/tubecast/internal/domain"
	"github.com/rohvvn/tubecast/internal/ports"
)

type EpisodesRepository struct {
	db *sql.DB
}

func NewEpisodesRepository(db *sql.DB) *EpisodesRepository {
	return &EpisodesRepository{db: db}
}

const episodeColumns = `id, owner, fingerprint, title, description, uploader, upload_date, duration_seconds, filename, file_size_bytes, acquired_at, source_url, audio_url`

func (r *EpisodesRepository) Put(ctx context.Context, ep domain.Episode) (domain.Episode, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO episodes(`+episodeColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ep.ID, ep.Owner, ep.Fingerprint, ep.Title, ep.Description, ep.Uploader, ep.UploadDate,
		ep.DurationSeconds, ep.Filename, ep.FileSizeBytes,
		ep.AcquiredAt.UTC().Format(time.RFC3339), ep.SourceURL, ep.AudioURL)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.Episode{}, ports.ErrConflict
		}
		return domain.Episode{}, err
	}
	return r.GetByID(ctx, ep.ID)
}

func (r *EpisodesRepository) GetByID(ctx context.Context, id string) (domain.Episode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+episodeColumns+` FROM episodes WHERE id = ?
	`, id)
	return scanEpisode(row)
}

func (r *EpisodesRepository) GetByFingerprint(ctx context.Context, owner, fingerprint string) (domain.Episode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+episodeColumns+` FROM episodes WHERE owner = ? AND fingerprint = ?
	`, owner, fingerprint)
	return scanEpisode(row)
}

func (r *EpisodesRepository) ListByOwner(ctx context.Context, owner string) ([]domain.Episode, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+episodeColumns+` FROM episodes WHERE owner = ? ORDER BY acquired_at DESC, id DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Episode{}
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

func (r *EpisodesRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *EpisodesRepository) CountByOwner(ctx context.Context, owner string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE owner = ?`, owner).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (domain.Episode, error) {
	var ep domain.Episode
	var acquiredAt string
	err := row.Scan(&ep.ID, &ep.Owner, &ep.Fingerprint, &ep.Title, &ep.Description, &ep.Uploader,
		&ep.UploadDate, &ep.DurationSeconds, &ep.Filename, &ep.FileSizeBytes,
		&acquiredAt, &ep.SourceURL, &ep.AudioURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Episode{}, ports.ErrNotFound
		}
		return domain.Episode{}, err
	}
	ep.AcquiredAt, _ = time.Parse(time.RFC3339, acquiredAt)
	return ep, nil
}

var _ ports.EpisodeRepository = (*EpisodesRepository)(nil)

package app

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rohvvn/tubecast/internal/domain"
	"github.com/rohvvn/tubecast/internal/ports"
)

// memRepo est un EpisodeRepository en mémoire pour les tests du package.
type memRepo struct {
	mu       sync.Mutex
	episodes map[string]domain.Episode
}

func newMemRepo() *memRepo {
	return &memRepo{episodes: make(map[string]domain.Episode)}
}

func (r *memRepo) Put(_ context.Context, ep domain.Episode) (domain.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.episodes {
		if e.Owner == ep.Owner && e.Fingerprint == ep.Fingerprint {
			return domain.Episode{}, ports.ErrConflict
		}
	}
	r.episodes[ep.ID] = ep
	return ep, nil
}

func (r *memRepo) GetByFingerprint(_ context.Context, owner, fingerprint string) (domain.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.episodes {
		if e.Owner == owner && e.Fingerprint == fingerprint {
			return e, nil
		}
	}
	return domain.Episode{}, ports.ErrNotFound
}

func (r *memRepo) GetByID(_ context.Context, id string) (domain.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.episodes[id]
	if !ok {
		return domain.Episode{}, ports.ErrNotFound
	}
	return e, nil
}

func (r *memRepo) ListByOwner(_ context.Context, owner string) ([]domain.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Episode
	for _, e := range r.episodes {
		if e.Owner == owner {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AcquiredAt.After(out[j].AcquiredAt) })
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.episodes[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.episodes, id)
	return nil
}

func (r *memRepo) CountByOwner(_ context.Context, owner string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.episodes {
		if e.Owner == owner {
			n++
		}
	}
	return n, nil
}

var _ ports.EpisodeRepository = (*memRepo)(nil)

// fakeExtractor rejoue des métadonnées fixes et matérialise l'artefact en
// écrivant un mp3 factice dans destDir, comme le ferait l'outil externe.
type fakeExtractor struct {
	meta ports.VideoMetadata

	// Nom du fichier écrit par DownloadAudio; défaut: titre assaini + .mp3.
	artifactName string

	metadataErr error
	downloadErr error

	metadataCalls int32
	downloadCalls int32
}

func (f *fakeExtractor) FetchMetadata(context.Context, string) (ports.VideoMetadata, error) {
	atomic.AddInt32(&f.metadataCalls, 1)
	if f.metadataErr != nil {
		return ports.VideoMetadata{}, f.metadataErr
	}
	return f.meta, nil
}

func (f *fakeExtractor) DownloadAudio(_ context.Context, _, destDir string) error {
	atomic.AddInt32(&f.downloadCalls, 1)
	if f.downloadErr != nil {
		return f.downloadErr
	}
	name := f.artifactName
	if name == "" {
		name = domain.SanitizeTitle(f.meta.Title) + ".mp3"
	}
	return os.WriteFile(filepath.Join(destDir, name), []byte("fake audio payload"), 0o644)
}

var _ ports.Extractor = (*fakeExtractor)(nil)

// memJobs est un JobRepository en mémoire, FIFO sur l'ordre d'insertion.
type memJobs struct {
	mu   sync.Mutex
	jobs []domain.IngestJob
}

func newMemJobs() *memJobs { return &memJobs{} }

func (r *memJobs) Create(_ context.Context, job domain.IngestJob) (domain.IngestJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return job, nil
}

func (r *memJobs) Get(_ context.Context, id string) (domain.IngestJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return domain.IngestJob{}, ports.ErrNotFound
}

func (r *memJobs) List(_ context.Context, limit int) ([]domain.IngestJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.IngestJob, len(r.jobs))
	copy(out, r.jobs)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memJobs) ClaimNextQueued(_ context.Context) (domain.IngestJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, j := range r.jobs {
		if j.State == domain.JobQueued {
			r.jobs[i].State = domain.JobRunning
			return r.jobs[i], nil
		}
	}
	return domain.IngestJob{}, ports.ErrNotFound
}

func (r *memJobs) MarkCompleted(_ context.Context, id, episodeID string) (domain.IngestJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, j := range r.jobs {
		if j.ID == id && j.State == domain.JobRunning {
			r.jobs[i].State = domain.JobCompleted
			r.jobs[i].EpisodeID = episodeID
			return r.jobs[i], nil
		}
	}
	return domain.IngestJob{}, ports.ErrNotFound
}

func (r *memJobs) MarkFailed(_ context.Context, id, code, message string) (domain.IngestJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, j := range r.jobs {
		if j.ID == id && !j.State.IsTerminal() {
			r.jobs[i].State = domain.JobFailed
			r.jobs[i].ErrorCode = code
			r.jobs[i].ErrorMessage = message
			return r.jobs[i], nil
		}
	}
	return domain.IngestJob{}, ports.ErrNotFound
}

func (r *memJobs) CountByOwner(_ context.Context, owner string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.jobs {
		if j.Owner == owner {
			n++
		}
	}
	return n, nil
}

var _ ports.JobRepository = (*memJobs)(nil)

package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/rohvvn/tubecast/internal/domain"
	"github.com/rohvvn/tubecast/internal/ports"
)

// DestDirFunc résout le répertoire d'artefacts d'un owner.
type DestDirFunc func(owner string) string

// OwnerDirs scope les artefacts par owner: {root}/{owner}.
func OwnerDirs(root string) DestDirFunc {
	return func(owner string) string { return filepath.Join(root, owner) }
}

// FlatDir place tous les artefacts dans un répertoire unique (mode CLI).
func FlatDir(dir string) DestDirFunc {
	return func(string) string { return dir }
}

// IngestService est la façade d'ingestion: validation, dédup par
// (owner, fingerprint), acquisition sous verrou, suppression owner-checked.
type IngestService struct {
	logger   zerolog.Logger
	episodes ports.EpisodeRepository
	acquirer *Acquirer
	bus      ports.EventBus
	limiter  *DynamicLimiter
	locks    *keyLock
	destDir  DestDirFunc
}

func NewIngestService(logger zerolog.Logger, episodes ports.EpisodeRepository, acquirer *Acquirer, bus ports.EventBus, limiter *DynamicLimiter, destDir DestDirFunc) *IngestService {
	return &IngestService{
		logger:   logger,
		episodes: episodes,
		acquirer: acquirer,
		bus:      bus,
		limiter:  limiter,
		locks:    newKeyLock(),
		destDir:  destDir,
	}
}

// EpisodeDTO est la projection JSON d'un épisode.
type EpisodeDTO struct {
	ID              string    `json:"id"`
	Owner           string    `json:"owner"`
	Fingerprint     string    `json:"fingerprint"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Uploader        string    `json:"uploader"`
	UploadDate      string    `json:"uploadDate,omitempty"`
	DurationSeconds int       `json:"durationSeconds"`
	Filename        string    `json:"filename"`
	FileSizeBytes   int64     `json:"fileSizeBytes"`
	AcquiredAt      time.Time `json:"acquiredAt"`
	SourceURL       string    `json:"sourceUrl"`
	AudioURL        string    `json:"audioUrl"`
}

func ToEpisodeDTO(ep domain.Episode) EpisodeDTO {
	return EpisodeDTO{
		ID:              ep.ID,
		Owner:           ep.Owner,
		Fingerprint:     ep.Fingerprint,
		Title:           ep.Title,
		Description:     ep.Description,
		Uploader:        ep.Uploader,
		UploadDate:      ep.UploadDate,
		DurationSeconds: ep.DurationSeconds,
		Filename:        ep.Filename,
		FileSizeBytes:   ep.FileSizeBytes,
		AcquiredAt:      ep.AcquiredAt,
		SourceURL:       ep.SourceURL,
		AudioURL:        ep.AudioURL,
	}
}

func publishEpisodeEvent(bus ports.EventBus, topic string, ep domain.Episode) {
	if bus == nil {
		return
	}
	b, err := json.Marshal(ToEpisodeDTO(ep))
	if err != nil {
		return
	}
	bus.Publish(topic, b)
}

// Ingest acquires one source URL for an owner. It validates the scheme before
// any I/O, short-circuits known fingerprints as DuplicateError and serializes
// concurrent attempts on the same (owner, fingerprint) key.
func (s *IngestService) Ingest(ctx context.Context, owner, sourceURL string) (domain.Episode, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return domain.Episode{}, &CodedError{Code: CodeInvalidURL, Message: "URL must start with http:// or https://"}
	}

	fp := domain.Fingerprint(sourceURL)

	if existing, err := s.episodes.GetByFingerprint(ctx, owner, fp); err == nil {
		return domain.Episode{}, &DuplicateError{Existing: existing}
	} else if !errors.Is(err, ports.ErrNotFound) {
		return domain.Episode{}, err
	}

	unlock := s.locks.Lock(owner + "/" + fp)
	defer unlock()

	// Re-check sous verrou: un concurrent a pu gagner la course.
	if existing, err := s.episodes.GetByFingerprint(ctx, owner, fp); err == nil {
		return domain.Episode{}, &DuplicateError{Existing: existing}
	} else if !errors.Is(err, ports.ErrNotFound) {
		return domain.Episode{}, err
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return domain.Episode{}, err
		}
		defer s.limiter.Release()
	}

	ep, err := s.acquirer.Acquire(ctx, owner, sourceURL, s.DestDir(owner))
	if err != nil {
		return domain.Episode{}, err
	}

	publishEpisodeEvent(s.bus, "episode.acquired", ep)
	return ep, nil
}

// Delete retire l'épisode et son artefact. L'artefact absent est logué et
// la suppression des métadonnées continue: la divergence est assumée.
func (s *IngestService) Delete(ctx context.Context, owner, episodeID string) error {
	ep, err := s.episodes.GetByID(ctx, episodeID)
	if err != nil {
		return err
	}
	if ep.Owner != owner {
		return &CodedError{Code: CodeUnauthorized, Message: "episode belongs to another owner"}
	}

	path := filepath.Join(s.DestDir(owner), ep.Filename)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn().Str("file", path).Msg("artifact already gone, removing metadata anyway")
		} else {
			s.logger.Error().Err(err).Str("file", path).Msg("failed to remove artifact")
		}
	}

	if err := s.episodes.Delete(ctx, episodeID); err != nil {
		return &CodedError{Code: CodeStoreWriteFailed, Message: "remove episode metadata", Err: err}
	}

	publishEpisodeEvent(s.bus, "episode.deleted", ep)
	return nil
}

func (s *IngestService) Get(ctx context.Context, id string) (domain.Episode, error) {
	return s.episodes.GetByID(ctx, id)
}

func (s *IngestService) List(ctx context.Context, owner string) ([]domain.Episode, error) {
	return s.episodes.ListByOwner(ctx, owner)
}

// DestDir renvoie le répertoire des artefacts d'un owner.
func (s *IngestService) DestDir(owner string) string {
	return s.destDir(owner)
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/rs/xid"

	"github.com/rohvvn/tubecast/internal/domain"
	"github.com/rohvvn/tubecast/internal/ports"
)

// JobService enfile les ingestions en arrière-plan. La validation d'URL et la
// détection de doublon se font dès l'enqueue, sans effet de bord: seul le
// worker touche au réseau et au filesystem.
type JobService struct {
	repo     ports.JobRepository
	episodes ports.EpisodeRepository
	bus      ports.EventBus
}

func NewJobService(repo ports.JobRepository, episodes ports.EpisodeRepository, bus ports.EventBus) *JobService {
	return &JobService{repo: repo, episodes: episodes, bus: bus}
}

type JobDTO struct {
	ID        string          `json:"id"`
	Owner     string          `json:"owner"`
	SourceURL string          `json:"sourceUrl"`
	State     domain.JobState `json:"state"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	EpisodeID string          `json:"episodeId,omitempty"`
	ErrorCode string          `json:"errorCode,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func ToJobDTO(j domain.IngestJob) JobDTO {
	return JobDTO{
		ID:        j.ID,
		Owner:     j.Owner,
		SourceURL: j.SourceURL,
		State:     j.State,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
		EpisodeID: j.EpisodeID,
		ErrorCode: j.ErrorCode,
		Error:     j.ErrorMessage,
	}
}

func publishJobEvent(bus ports.EventBus, topic string, job domain.IngestJob) {
	if bus == nil {
		return
	}
	b, err := json.Marshal(ToJobDTO(job))
	if err != nil {
		return
	}
	bus.Publish(topic, b)
}

// Enqueue valide l'URL et la dédup avant de créer le job.
func (s *JobService) Enqueue(ctx context.Context, owner, sourceURL string) (JobDTO, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return JobDTO{}, &CodedError{Code: CodeInvalidURL, Message: "URL must start with http:// or https://"}
	}

	fp := domain.Fingerprint(sourceURL)
	if existing, err := s.episodes.GetByFingerprint(ctx, owner, fp); err == nil {
		return JobDTO{}, &DuplicateError{Existing: existing}
	} else if !errors.Is(err, ports.ErrNotFound) {
		return JobDTO{}, err
	}

	now := time.Now().UTC()
	job := domain.IngestJob{
		ID:        xid.New().String(),
		Owner:     owner,
		SourceURL: sourceURL,
		State:     domain.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.repo.Create(ctx, job)
	if err != nil {
		return JobDTO{}, err
	}
	publishJobEvent(s.bus, "ingest.queued", created)
	return ToJobDTO(created), nil
}

func (s *JobService) Get(ctx context.Context, id string) (JobDTO, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return JobDTO{}, err
	}
	return ToJobDTO(job), nil
}

func (s *JobService) List(ctx context.Context, limit int) ([]JobDTO, error) {
	jobs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]JobDTO, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ToJobDTO(j))
	}
	return out, nil
}

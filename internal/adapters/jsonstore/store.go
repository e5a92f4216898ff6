// Package jsonstore persiste les épisodes du mode single-operator dans un
// fichier JSON unique: un objet fingerprint -> record, indenté, UTF-8 préservé,
// réécrit en entier à chaque mutation.
package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/rohvvn/tubecast/internal/domain"
	"github.com/rohvvn/tubecast/internal/ports"
)

// record est la forme sur disque d'un épisode, alignée sur le format
// historique du fichier de métadonnées.
type record struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Duration     int    `json:"duration"`
	UploadDate   string `json:"upload_date"`
	Uploader     string `json:"uploader"`
	Filename     string `json:"filename"`
	FileSize     int64  `json:"file_size"`
	DownloadDate string `json:"download_date"`
	VideoURL     string `json:"video_url"`
	AudioURL     string `json:"audio_url"`
}

// Store implémente ports.EpisodeRepository pour un seul owner (le scope
// global du mode CLI). Un mutex protège la map en process; un flock protège
// le fichier entre processus.
type Store struct {
	logger zerolog.Logger
	path   string
	owner  string
	fileLk *flock.Flock

	mu       sync.Mutex
	episodes map[string]record
}

// Open charge l'état persisté. Un fichier absent démarre vide; un fichier
// corrompu démarre vide aussi, mais la corruption est loguée: c'est une
// perte de données que l'opérateur doit pouvoir détecter.
func Open(logger zerolog.Logger, path, owner string) (*Store, error) {
	s := &Store{
		logger:   logger,
		path:     path,
		owner:    owner,
		fileLk:   flock.New(path + ".lock"),
		episodes: make(map[string]record),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Str("file", path).Msg("metadata store unreadable, starting empty")
		}
		return s, nil
	}

	if err := json.Unmarshal(raw, &s.episodes); err != nil {
		logger.Error().Err(err).Str("file", path).Msg("metadata store corrupt, starting empty; previously recorded episodes are lost")
		s.episodes = make(map[string]record)
	}
	return s, nil
}

func (s *Store) Put(_ context.Context, ep domain.Episode) (domain.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.episodes[ep.Fingerprint]; ok {
		return domain.Episode{}, ports.ErrConflict
	}
	s.episodes[ep.Fingerprint] = toRecord(ep)
	if err := s.persistLocked(); err != nil {
		delete(s.episodes, ep.Fingerprint)
		return domain.Episode{}, err
	}
	return ep, nil
}

func (s *Store) GetByFingerprint(_ context.Context, owner, fingerprint string) (domain.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner != s.owner {
		return domain.Episode{}, ports.ErrNotFound
	}
	rec, ok := s.episodes[fingerprint]
	if !ok {
		return domain.Episode{}, ports.ErrNotFound
	}
	return s.toEpisode(fingerprint, rec), nil
}

func (s *Store) GetByID(_ context.Context, id string) (domain.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for fp, rec := range s.episodes {
		if rec.ID == id || fp == id {
			return s.toEpisode(fp, rec), nil
		}
	}
	return domain.Episode{}, ports.ErrNotFound
}

func (s *Store) ListByOwner(_ context.Context, owner string) ([]domain.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Episode{}
	if owner != s.owner {
		return out, nil
	}
	for fp, rec := range s.episodes {
		out = append(out, s.toEpisode(fp, rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AcquiredAt.Equal(out[j].AcquiredAt) {
			return out[i].Fingerprint > out[j].Fingerprint
		}
		return out[i].AcquiredAt.After(out[j].AcquiredAt)
	})
	return out, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for fp, rec := range s.episodes {
		if rec.ID == id || fp == id {
			delete(s.episodes, fp)
			if err := s.persistLocked(); err != nil {
				s.episodes[fp] = rec
				return err
			}
			return nil
		}
	}
	return ports.ErrNotFound
}

func (s *Store) CountByOwner(_ context.Context, owner string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner != s.owner {
		return 0, nil
	}
	return len(s.episodes), nil
}

// persistLocked réécrit le fichier entier: écriture dans un fichier temporaire
// puis rename, pour qu'un crash en cours d'écriture ne laisse jamais un
// fichier tronqué lisible comme "vide valide".
func (s *Store) persistLocked() error {
	if err := s.fileLk.Lock(); err != nil {
		return fmt.Errorf("lock metadata store: %w", err)
	}
	defer func() { _ = s.fileLk.Unlock() }()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.episodes); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func toRecord(ep domain.Episode) record {
	return record{
		ID:           ep.ID,
		Title:        ep.Title,
		Description:  ep.Description,
		Duration:     ep.DurationSeconds,
		UploadDate:   ep.UploadDate,
		Uploader:     ep.Uploader,
		Filename:     ep.Filename,
		FileSize:     ep.FileSizeBytes,
		DownloadDate: ep.AcquiredAt.UTC().Format(time.RFC3339),
		VideoURL:     ep.SourceURL,
		AudioURL:     ep.AudioURL,
	}
}

func (s *Store) toEpisode(fingerprint string, rec record) domain.Episode {
	acquired, _ := time.Parse(time.RFC3339, rec.DownloadDate)
	id := rec.ID
	if id == "" {
		id = fingerprint
	}
	return domain.Episode{
		ID:              id,
		Owner:           s.owner,
		Fingerprint:     fingerprint,
		Title:           rec.Title,
		Description:     rec.Description,
		Uploader:        rec.Uploader,
		UploadDate:      rec.UploadDate,
		DurationSeconds: rec.Duration,
		Filename:        rec.Filename,
		FileSizeBytes:   rec.FileSize,
		AcquiredAt:      acquired,
		SourceURL:       rec.VideoURL,
		AudioURL:        rec.AudioURL,
	}
}

var _ ports.EpisodeRepository = (*Store)(nil)

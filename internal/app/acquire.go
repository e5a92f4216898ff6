package app

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/rohvvn/tubecast/internal/domain"
	"github.com/rohvvn/tubecast/internal/ports"
)

const audioExt = ".mp3"

// AudioURLFunc construit l'URL publique d'un artefact résolu.
type AudioURLFunc func(owner, filename string) string

// Acquirer pilote l'extracteur externe: métadonnées d'abord, puis download,
// puis résolution de l'artefact produit. Une empreinte déjà connue court-circuite
// tout appel réseau.
type Acquirer struct {
	logger    zerolog.Logger
	extractor ports.Extractor
	episodes  ports.EpisodeRepository
	audioURL  AudioURLFunc
}

func NewAcquirer(logger zerolog.Logger, extractor ports.Extractor, episodes ports.EpisodeRepository, audioURL AudioURLFunc) *Acquirer {
	return &Acquirer{logger: logger, extractor: extractor, episodes: episodes, audioURL: audioURL}
}

// ServerAudioURL renvoie le constructeur d'URL du mode multi-user:
// {base}/episode/{owner}/{filename}.
func ServerAudioURL(baseURL string) AudioURLFunc {
	base := strings.TrimRight(baseURL, "/")
	return func(owner, filename string) string {
		return base + "/episode/" + url.PathEscape(owner) + "/" + url.PathEscape(filename)
	}
}

// FileAudioURL renvoie le constructeur d'URL du mode single-operator:
// {base}/episodes/{filename}, sans scope owner.
func FileAudioURL(baseURL string) AudioURLFunc {
	base := strings.TrimRight(baseURL, "/")
	return func(_, filename string) string {
		return base + "/episodes/" + url.PathEscape(filename)
	}
}

// Acquire fetches metadata, downloads the decoded audio artifact into destDir
// and persists the resulting episode. A known (owner, fingerprint) returns the
// stored record unchanged: acquisition is a cache hit, never a refresh.
func (a *Acquirer) Acquire(ctx context.Context, owner, sourceURL, destDir string) (domain.Episode, error) {
	fp := domain.Fingerprint(sourceURL)

	existing, err := a.episodes.GetByFingerprint(ctx, owner, fp)
	if err == nil {
		a.logger.Info().Str("fingerprint", fp).Str("title", existing.Title).Msg("already acquired")
		return existing, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return domain.Episode{}, err
	}

	meta, err := a.extractor.FetchMetadata(ctx, sourceURL)
	if err != nil {
		return domain.Episode{}, &CodedError{Code: CodeMetadataFetchFailed, Message: "fetch metadata", Err: err}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return domain.Episode{}, &CodedError{Code: CodeDownloadFailed, Message: "create episodes dir", Err: err}
	}

	if err := a.extractor.DownloadAudio(ctx, sourceURL, destDir); err != nil {
		a.cleanupPartials(destDir)
		return domain.Episode{}, &CodedError{Code: CodeDownloadFailed, Message: "download audio", Err: err}
	}

	filename, path, err := resolveArtifact(destDir, meta.Title)
	if err != nil {
		a.cleanupPartials(destDir)
		return domain.Episode{}, &CodedError{Code: CodeArtifactNotFound, Message: "locate downloaded audio", Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.Episode{}, &CodedError{Code: CodeArtifactNotFound, Message: "stat artifact", Err: err}
	}

	// Défauts validés une seule fois, ici, à la frontière de l'extracteur.
	title := meta.Title
	if title == "" {
		title = probeTitle(path)
	}
	if title == "" {
		title = strings.TrimSuffix(filename, audioExt)
	}
	uploader := meta.Uploader
	if uploader == "" {
		uploader = domain.DefaultUploader
	}
	duration := meta.DurationSeconds
	if duration <= 0 {
		duration = probeDuration(path)
	}

	ep := domain.Episode{
		ID:              xid.New().String(),
		Owner:           owner,
		Fingerprint:     fp,
		Title:           title,
		Description:     domain.TruncateDescription(meta.Description),
		Uploader:        uploader,
		UploadDate:      meta.UploadDate,
		DurationSeconds: duration,
		Filename:        filename,
		FileSizeBytes:   info.Size(),
		AcquiredAt:      time.Now().UTC(),
		SourceURL:       sourceURL,
		AudioURL:        a.audioURL(owner, filename),
	}

	stored, err := a.episodes.Put(ctx, ep)
	if err != nil {
		return domain.Episode{}, &CodedError{Code: CodeStoreWriteFailed, Message: "persist episode", Err: err}
	}

	a.logger.Info().
		Str("fingerprint", fp).
		Str("title", stored.Title).
		Str("filename", stored.Filename).
		Int64("size", stored.FileSizeBytes).
		Msg("episode acquired")
	return stored, nil
}

var errNoArtifact = errors.New("downloaded audio file not found")

// resolveArtifact localise le fichier produit par l'extracteur. Nom attendu:
// titre assaini + extension. Si l'extracteur a appliqué une autre
// sanitisation, repli sur le mp3 le plus récemment modifié du répertoire.
func resolveArtifact(destDir, title string) (filename, path string, err error) {
	expected := domain.SanitizeTitle(title) + audioExt
	candidate := filepath.Join(destDir, expected)
	if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
		return expected, candidate, nil
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", "", err
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), audioExt) {
			continue
		}
		info, infoErr := e.Info()
		if infoErr != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = e.Name()
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", "", errNoArtifact
	}
	return newest, filepath.Join(destDir, newest), nil
}

// cleanupPartials retire les restes d'un download interrompu (best-effort).
func (a *Acquirer) cleanupPartials(destDir string) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") || strings.HasSuffix(name, ".webm") || strings.HasSuffix(name, ".m4a") {
			if err := os.Remove(filepath.Join(destDir, name)); err != nil {
				a.logger.Warn().Err(err).Str("file", name).Msg("failed to remove partial download")
			}
		}
	}
}

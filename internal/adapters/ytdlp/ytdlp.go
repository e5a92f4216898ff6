// Package ytdlp pilote le binaire yt-dlp: métadonnées en mode dump-json,
// download+transcodage audio en mp3 192k.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rohvvn/tubecast/internal/ports"
)

var commandContext = exec.CommandContext

const (
	audioCodec   = "mp3"
	audioQuality = "192K"
)

// Option configure le client CLI.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the yt-dlp command-line extractor.
type CLI struct {
	binary string
}

func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yt-dlp"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

type dumpedInfo struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	UploadDate  string  `json:"upload_date"`
	Uploader    string  `json:"uploader"`
}

// FetchMetadata interroge la source sans rien télécharger.
func (c *CLI) FetchMetadata(ctx context.Context, url string) (ports.VideoMetadata, error) {
	if url == "" {
		return ports.VideoMetadata{}, errors.New("url required")
	}

	args := []string{"--dump-single-json", "--no-download", "--no-playlist", url}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return ports.VideoMetadata{}, fmt.Errorf("yt-dlp metadata fetch failed: %w: %s", err, firstLine(stderr.String()))
	}

	var info dumpedInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return ports.VideoMetadata{}, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	return ports.VideoMetadata{
		Title:           info.Title,
		Description:     info.Description,
		DurationSeconds: int(info.Duration),
		UploadDate:      info.UploadDate,
		Uploader:        info.Uploader,
	}, nil
}

// DownloadAudio télécharge la meilleure piste audio et la transcode en mp3
// dans destDir. Le nommage de sortie de yt-dlp n'est pas déterministe: la
// résolution du fichier produit appartient à l'appelant.
func (c *CLI) DownloadAudio(ctx context.Context, url, destDir string) error {
	if url == "" {
		return errors.New("url required")
	}
	if strings.TrimSpace(destDir) == "" {
		return errors.New("destination directory required")
	}

	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", audioCodec,
		"--audio-quality", audioQuality,
		"--no-playlist",
		"--no-progress",
		"--output", filepath.Join(destDir, "%(title)s.%(ext)s"),
		url,
	}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp download failed: %w: %s", err, firstLine(stderr.String()))
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

var _ ports.Extractor = (*CLI)(nil)

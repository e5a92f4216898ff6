// tubecast est le mode single-operator: une URL, une acquisition, un flux
// rss.xml régénéré sur disque.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rohvvn/tubecast/internal/adapters/jsonstore"
	"github.com/rohvvn/tubecast/internal/adapters/ytdlp"
	"github.com/rohvvn/tubecast/internal/app"
	"github.com/rohvvn/tubecast/internal/buildinfo"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		baseURL      string
		episodesDir  string
		metadataPath string
		feedPath     string
		ytdlpBinary  string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:     "tubecast <url>",
		Short:   "Turn a video URL into a podcast episode",
		Long:    "tubecast downloads the audio track of a video, stores its metadata and regenerates a podcast RSS feed on disk.",
		Args:    cobra.ExactArgs(1),
		Version: buildinfo.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.InfoLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

			return runIngest(cmd.Context(), logger, args[0], baseURL, episodesDir, metadataPath, feedPath, ytdlpBinary)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "https://rohvvn.github.io/tubecast", "base URL for the podcast feed")
	cmd.Flags().StringVar(&episodesDir, "dir", "episodes", "directory for downloaded audio artifacts")
	cmd.Flags().StringVar(&metadataPath, "store", "episodes_metadata.json", "path of the metadata store file")
	cmd.Flags().StringVar(&feedPath, "feed", "rss.xml", "path of the generated RSS feed")
	cmd.Flags().StringVar(&ytdlpBinary, "ytdlp", "yt-dlp", "yt-dlp binary to invoke")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log progress details")

	return cmd
}

func runIngest(ctx context.Context, logger zerolog.Logger, url, baseURL, episodesDir, metadataPath, feedPath, ytdlpBinary string) error {
	store, err := jsonstore.Open(logger, metadataPath, "")
	if err != nil {
		return err
	}

	extractor := ytdlp.NewCLI(ytdlp.WithBinary(ytdlpBinary))
	acquirer := app.NewAcquirer(logger, extractor, store, app.FileAudioURL(baseURL))
	ingest := app.NewIngestService(logger, store, acquirer, nil, nil, app.FlatDir(episodesDir))

	ep, err := ingest.Ingest(ctx, "", url)
	if err != nil {
		var dup *app.DuplicateError
		if errors.As(err, &dup) {
			fmt.Printf("Video already downloaded: %s\n", dup.Existing.Title)
			ep = dup.Existing
		} else {
			return err
		}
	} else {
		fmt.Printf("Successfully downloaded: %s\n", ep.Title)
		fmt.Printf("File saved as: %s\n", ep.Filename)
	}

	episodes, err := ingest.List(ctx, "")
	if err != nil {
		return err
	}
	doc, err := app.BuildFeed(app.GlobalFeedInfo(baseURL), episodes)
	if err != nil {
		return err
	}
	if err := writeFeed(feedPath, doc); err != nil {
		return err
	}

	fmt.Printf("Audio URL: %s\n", ep.AudioURL)
	fmt.Printf("RSS feed generated: %s\n", feedPath)
	return nil
}

func writeFeed(path string, doc []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, doc, 0o644)
}

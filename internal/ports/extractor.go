package ports

import "context"

// VideoMetadata est la forme fixe validée à la frontière de l'extracteur.
// Les champs absents côté source sont remplis par des défauts en aval.
type VideoMetadata struct {
	Title           string
	Description     string
	DurationSeconds int
	// UploadDate au format YYYYMMDD, possiblement vide.
	UploadDate string
	Uploader   string
}

// Extractor est la capacité externe opaque: métadonnées d'une URL source,
// et production d'un artefact audio décodé dans un répertoire cible.
// Les échecs ne sont catégorisés que fetch-failure vs download-failure.
type Extractor interface {
	FetchMetadata(ctx context.Context, url string) (VideoMetadata, error)
	DownloadAudio(ctx context.Context, url, destDir string) error
}

package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// DescriptionLimit borne la taille des descriptions stockées.
const DescriptionLimit = 500

const DefaultUploader = "Unknown"

// Episode est le résultat durable d'une acquisition réussie.
// Jamais modifié après création: une ré-ingestion renvoie l'existant tel quel.
type Episode struct {
	ID          string
	Owner       string
	Fingerprint string

	Title       string
	Description string
	Uploader    string
	// UploadDate est la date source brute au format YYYYMMDD, possiblement vide.
	UploadDate      string
	DurationSeconds int

	Filename      string
	FileSizeBytes int64

	AcquiredAt time.Time
	SourceURL  string
	AudioURL   string
}

// Fingerprint derives the dedup key for a source URL: the first 8 hex
// characters of the MD5 of the exact input bytes. No normalization: two
// spellings of the same resource are distinct on purpose.
func Fingerprint(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:8]
}

// TruncateDescription caps a description at DescriptionLimit characters,
// appending an ellipsis marker when it was longer.
func TruncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= DescriptionLimit {
		return s
	}
	return string(runes[:DescriptionLimit]) + "..."
}

// SanitizeTitle turns a source title into a safe filename stem: characters
// invalid on common filesystems become underscores, length is capped at 100
// and surrounding whitespace is trimmed.
func SanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := []rune(b.String())
	if len(out) > 100 {
		out = out[:100]
	}
	return strings.TrimSpace(string(out))
}

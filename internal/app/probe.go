package app

import (
	"errors"
	"io"
	"math"
	"os"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// probeTitle lit le titre ID3 de l'artefact, "" si absent ou illisible.
func probeTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(meta.Title())
}

// probeDuration mesure la durée d'un mp3 en décodant ses frames.
// Renvoie 0 si le fichier n'est pas décodable.
func probeDuration(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0
		}
		total += frame.Duration().Seconds()
	}

	return int(math.Round(total))
}

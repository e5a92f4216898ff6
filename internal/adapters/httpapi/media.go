package httpapi

import (
	"errors"
	"net/http"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// handleAudio sert les octets d'un artefact pour les clients podcast.
// Pas d'authentification; http.ServeFile fournit le byte-range passthrough.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	filename := chi.URLParam(r, "filename")

	rel := pathpkg.Clean("/" + filename)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		http.NotFound(w, r)
		return
	}

	root := filepath.Join(s.episodesRoot, owner)
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !pathWithinRoot(root, target) {
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		hlog.FromRequest(r).Error().Err(err).Str("file", target).Msg("stat artifact failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	http.ServeFile(w, r, target)
}

func pathWithinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/rohvvn/tubecast/internal/app"
)

// handleFeed sert le flux RSS personnel d'un owner. Accès public: c'est
// l'URL qu'on colle dans une app de podcast.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")

	known, err := s.ownerKnown(r, owner)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("owner lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !known {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	episodes, err := s.episodes.ListByOwner(r.Context(), owner)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list episodes failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	feedURL := s.baseURL + "/feed/" + url.PathEscape(owner)
	doc, err := app.BuildFeed(app.OwnerFeedInfo(owner, feedURL), episodes)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("build feed failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write(doc)
}

// ownerKnown: sans table d'utilisateurs (l'auth est hors scope), un owner
// existe dès qu'il a au moins un épisode ou un job enregistré.
func (s *Server) ownerKnown(r *http.Request, owner string) (bool, error) {
	n, err := s.episodes.CountByOwner(r.Context(), owner)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if s.jobsRepo == nil {
		return false, nil
	}
	jobs, err := s.jobsRepo.CountByOwner(r.Context(), owner)
	if err != nil {
		return false, err
	}
	return jobs > 0, nil
}

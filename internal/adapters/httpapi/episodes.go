package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/rohvvn/tubecast/internal/app"
	"github.com/rohvvn/tubecast/internal/httpjson"
)

type addEpisodeRequest struct {
	VideoURL string `json:"video_url"`
}

type episodeListResponse struct {
	Notice   string           `json:"notice,omitempty"`
	Episodes []app.EpisodeDTO `json:"episodes"`
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")

	episodes, err := s.ingest.List(r.Context(), owner)
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := episodeListResponse{
		Notice:   takeFlash(w, r),
		Episodes: make([]app.EpisodeDTO, 0, len(episodes)),
	}
	for _, ep := range episodes {
		out.Episodes = append(out.Episodes, app.ToEpisodeDTO(ep))
	}
	httpjson.Write(w, http.StatusOK, out)
}

// handleAddEpisode enfile une ingestion. Le chemin de référence est un POST
// de formulaire (champ video_url) suivi d'une redirection + notice; un corps
// JSON reçoit à la place un 202 avec le job, à poller sur /api/v1/jobs/{id}.
func (s *Server) handleAddEpisode(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")

	isJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")

	var videoURL string
	if isJSON {
		var req addEpisodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
			return
		}
		videoURL = req.VideoURL
	} else {
		if err := r.ParseForm(); err != nil {
			httpjson.WriteError(w, http.StatusBadRequest, "invalid form")
			return
		}
		videoURL = r.PostFormValue("video_url")
	}

	job, err := s.jobs.Enqueue(r.Context(), owner, videoURL)
	if err != nil {
		s.answerAddError(w, r, owner, isJSON, err)
		return
	}

	if isJSON {
		httpjson.Write(w, http.StatusAccepted, job)
		return
	}
	setFlash(w, "Download started! The episode will appear in your feed shortly")
	s.redirectToDashboard(w, r, owner)
}

func (s *Server) answerAddError(w http.ResponseWriter, r *http.Request, owner string, isJSON bool, err error) {
	var dup *app.DuplicateError
	if errors.As(err, &dup) {
		if isJSON {
			httpjson.Write(w, http.StatusConflict, map[string]any{
				"error":   "this video is already in your podcast",
				"episode": app.ToEpisodeDTO(dup.Existing),
			})
			return
		}
		setFlash(w, "This video is already in your podcast!")
		s.redirectToDashboard(w, r, owner)
		return
	}

	if app.ErrorCode(err) == app.CodeInvalidURL {
		if isJSON {
			httpjson.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		setFlash(w, "Please provide a valid URL")
		s.redirectToDashboard(w, r, owner)
		return
	}

	hlog.FromRequest(r).Error().Err(err).Msg("enqueue ingest failed")
	if isJSON {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	setFlash(w, "Error processing video: "+err.Error())
	s.redirectToDashboard(w, r, owner)
}

// handleDeleteEpisode retire un épisode du podcast de l'owner. Le contrôle
// d'appartenance est fait par le service; une tentative sur l'épisode d'un
// autre owner est rejetée.
func (s *Server) handleDeleteEpisode(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	id := chi.URLParam(r, "id")

	isJSON := strings.HasPrefix(r.Header.Get("Accept"), "application/json")

	err := s.ingest.Delete(r.Context(), owner, id)
	switch {
	case err == nil:
		if isJSON {
			httpjson.Write(w, http.StatusOK, map[string]string{"status": "deleted"})
			return
		}
		setFlash(w, "Episode deleted successfully")
		s.redirectToDashboard(w, r, owner)
	case errors.Is(err, app.ErrNotFound):
		if isJSON {
			httpjson.WriteError(w, http.StatusNotFound, "not found")
			return
		}
		http.NotFound(w, r)
	case app.ErrorCode(err) == app.CodeUnauthorized:
		if isJSON {
			httpjson.WriteError(w, http.StatusForbidden, "unauthorized")
			return
		}
		setFlash(w, "Unauthorized")
		s.redirectToDashboard(w, r, owner)
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("delete episode failed")
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) redirectToDashboard(w http.ResponseWriter, r *http.Request, owner string) {
	http.Redirect(w, r, "/u/"+url.PathEscape(owner)+"/episodes", http.StatusSeeOther)
}

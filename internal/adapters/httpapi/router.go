package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/rohvvn/tubecast/internal/app"
	"github.com/rohvvn/tubecast/internal/ports"
)

type Server struct {
	logger   zerolog.Logger
	ingest   *app.IngestService
	jobs     *app.JobService
	episodes ports.EpisodeRepository
	jobsRepo ports.JobRepository
	bus      ports.EventBus
	// episodesRoot est le répertoire parent des artefacts, un sous-dossier
	// par owner.
	episodesRoot string
	baseURL      string
}

func NewServer(logger zerolog.Logger, ingest *app.IngestService, jobs *app.JobService, episodes ports.EpisodeRepository, jobsRepo ports.JobRepository, bus ports.EventBus, episodesRoot, baseURL string) *Server {
	return &Server{
		logger:       logger,
		ingest:       ingest,
		jobs:         jobs,
		episodes:     episodes,
		jobsRepo:     jobsRepo,
		bus:          bus,
		episodesRoot: episodesRoot,
		baseURL:      baseURL,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	// Surface publique, consommée par les clients podcast: pas d'auth,
	// pas de timeout de requête (les enclosures peuvent être longues à servir).
	r.Get("/feed/{owner}", s.handleFeed)
	r.Get("/episode/{owner}/{filename}", s.handleAudio)

	r.Route("/u/{owner}", func(r chi.Router) {
		r.Use(middleware.Timeout(defaultRequestTimeout))
		r.Get("/episodes", s.handleListEpisodes)
		r.Post("/episodes", s.handleAddEpisode)
		r.Post("/episodes/{id}/delete", s.handleDeleteEpisode)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(defaultRequestTimeout))
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
	})
	r.Get("/api/v1/events", s.handleEvents)

	return r
}

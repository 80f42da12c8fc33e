package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"email-lookup-service/internal/usecase"
)

type Server struct {
	submitUC usecase.SubmitUseCase
	jobUC    usecase.JobUseCase
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(submitUC usecase.SubmitUseCase, jobUC usecase.JobUseCase, auth *AuthManager, logger *zerolog.Logger) *Server {
	srvLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		submitUC: submitUC,
		jobUC:    jobUC,
		auth:     auth,
		log:      &srvLog,
	}
}

// Router builds the HTTP surface. The job API sits behind token auth;
// health and metrics stay open for the platform probes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(TraceID)
	r.Use(RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/jobs", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Post("/", s.submitHandler())
		r.Get("/", s.listHandler())
		r.Get("/{id}", s.getHandler())
		r.Post("/{id}/stop", s.stopHandler())
		r.Get("/{id}/ws", s.streamHandler())
	})

	return r
}

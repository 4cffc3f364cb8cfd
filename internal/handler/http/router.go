package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewRouter(JWTService jwt.Service, pipelineHandler PipelineHandler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.NotFound(response.RouteNotFound)
	r.MethodNotAllowed(response.MethodNotAllowed)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stages", pipelineHandler.ListStages)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService))

			r.Route("/applications", func(r chi.Router) {
				r.Get("/", pipelineHandler.ListApplications)
				r.Post("/", pipelineHandler.CreateApplication)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", pipelineHandler.GetApplication)
					r.Post("/review", pipelineHandler.Review)

					r.Route("/history", func(r chi.Router) {
						r.Get("/", pipelineHandler.ListHistory)
						r.Post("/{entryID}/reopen", pipelineHandler.Reopen)
					})

					r.Route("/scores", func(r chi.Router) {
						r.Get("/", pipelineHandler.GetScores)
						r.Get("/{stage}", pipelineHandler.GetStageScore)
					})

					r.Get("/report", pipelineHandler.GetReport)
					r.Get("/summary", pipelineHandler.GetSummary)
				})
			})
		})
	})
	return r
}

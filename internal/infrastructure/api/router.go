package api

import (
	"net/http"

	securitymiddleware "github.com/lent0n/jira-github-integration/internal/infrastructure/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterOptions carries the handlers and settings the router mounts
type RouterOptions struct {
	Webhooks       *WebhookHandler
	Integration    *IntegrationHandler
	Config         *ConfigHandler
	Metrics        http.Handler // served on /metrics when set
	AdminToken     string
	AllowedOrigins []string
	Version        string
	Logger         zerolog.Logger
}

// NewRouter builds the HTTP surface of the service
func NewRouter(opts RouterOptions) chi.Router {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(securitymiddleware.RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", securitymiddleware.UserHeader, securitymiddleware.AdminTokenHeader},
		AllowCredentials: false,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": opts.Version})
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Method(http.MethodPost, "/webhooks/github", opts.Webhooks)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(securitymiddleware.UserAuth(opts.Logger))
			r.Post("/branch/create", opts.Integration.CreateBranch)
			r.Post("/pr/create", opts.Integration.CreatePullRequest)
			r.Get("/issue/{issueKey}/github-info", opts.Integration.IssueInfo)
		})

		r.Route("/config", func(r chi.Router) {
			r.Use(securitymiddleware.AdminAuth(opts.AdminToken, opts.Logger))
			r.Get("/", opts.Config.Get)
			r.Put("/", opts.Config.Put)
			r.Delete("/", opts.Config.Delete)
			r.Post("/test-connection", opts.Config.TestConnection)
			r.Post("/register-webhooks", opts.Config.RegisterWebhooks)
			r.Post("/generate-secret", opts.Config.GenerateSecret)
			r.Get("/events", opts.Config.Events)
		})
	})

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mnoushir/site-assistant/internal/assistant"
	"github.com/mnoushir/site-assistant/internal/config"
	"github.com/mnoushir/site-assistant/internal/websocket"
	"github.com/mnoushir/site-assistant/pkg/logger"
)

// Router builds the HTTP routing tree for the assistant API and the
// static site bundle
type Router struct {
	handler *Handler
	config  *config.Config
	logger  *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(manager *assistant.Manager, wsServer *websocket.Server, cfg *config.Config, logger *logger.Logger) *Router {
	return &Router{
		handler: NewHandler(manager, wsServer, cfg, logger),
		config:  cfg,
		logger:  logger.Named("api-router"),
	}
}

// Routes returns the configured routing tree
func (r *Router) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.Recoverer)
	mux.Use(corsMiddleware(r.config.Server.CORSAllowedOrigins))

	mux.Route("/api", func(api chi.Router) {
		api.Get("/health", r.handler.Health)

		api.Route("/assistant/sessions", func(sessions chi.Router) {
			sessions.Post("/", r.handler.CreateSession)

			sessions.Route("/{sessionID}", func(session chi.Router) {
				session.Get("/", r.handler.GetSession)
				session.Delete("/", r.handler.CloseSession)
				session.Post("/messages", r.handler.SubmitMessage)
				session.Get("/events", r.handler.SessionEvents)

				session.Route("/booking", func(b chi.Router) {
					b.Post("/select", r.handler.SelectSlot)
					b.Post("/form", r.handler.UpdateBookingForm)
					b.Post("/submit", r.handler.SubmitBooking)
					b.Post("/retry", r.handler.RetryAvailability)
					b.Post("/cancel", r.handler.CancelBooking)
					b.Post("/close", r.handler.CloseBooking)
				})
			})
		})
	})

	// Everything else is the site bundle
	if r.config.Server.StaticFilesDir != "" {
		static := NewStaticFileHandler(r.config.Server.StaticFilesDir, r.logger)
		mux.NotFound(static.ServeHTTP)
	}

	return mux
}

// corsMiddleware applies the configured CORS policy
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool)
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			origin := req.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}

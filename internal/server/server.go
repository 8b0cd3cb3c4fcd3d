// Package server exposes the services over HTTP and maps typed failures to status codes.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/export"
	"github.com/joseph-ayodele/fineprint/internal/notifications"
	"github.com/joseph-ayodele/fineprint/internal/regulations"
	"github.com/joseph-ayodele/fineprint/internal/review"
	"github.com/joseph-ayodele/fineprint/internal/users"
)

// Services are the handlers' collaborators.
type Services struct {
	Regulations   *regulations.Service
	Review        *review.Service
	Notifications *notifications.Service
	Users         *users.Service
	Export        *export.Service
}

// Options tunes the HTTP surface. Zero values pick defaults.
type Options struct {
	MaxUploadBytes int64
	Gatherer       prometheus.Gatherer
	// Health reports record store readiness. Nil means always healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	svc    Services
	opts   Options
	logger *slog.Logger
}

func New(svc Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{svc: svc, opts: opts, logger: logger}
}

// Routes builds the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/regulations", func(r chi.Router) {
			r.Get("/", s.listRegulations)
			r.Post("/", s.createRegulation)
			r.Route("/{regID}", func(r chi.Router) {
				r.Get("/", s.getRegulation)
				r.Delete("/", s.deleteRegulation)
				r.Put("/status", s.setRegulationStatus)
				r.Post("/comments", s.addRegulationComment)
				r.Post("/versions", s.addVersion)
				r.Route("/versions/{versionID}", func(r chi.Router) {
					r.Get("/", s.getVersion)
					r.Delete("/", s.deleteVersion)
					r.Get("/file", s.downloadVersion)
					r.Get("/export.xlsx", s.exportVersion)
					r.Route("/changes/{changeID}", func(r chi.Router) {
						r.Patch("/", s.editChange)
						r.Put("/status", s.setChangeStatus)
						r.Post("/comments", s.addChangeComment)
					})
				})
			})
		})
		r.Get("/notifications", s.listNotifications)
		r.Post("/notifications/{notificationID}/seen", s.markNotificationSeen)

		r.Post("/login", s.login)
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.listUsers)
			r.Post("/", s.createUser)
			r.Patch("/{userID}", s.updateUser)
			r.Put("/{userID}/password", s.resetPassword)
			r.Delete("/{userID}", s.deleteUser)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			common.LoggerFrom(r.Context(), s.logger).Warn("health.failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestID reuses an inbound X-Request-ID or mints one, and puts it on the context.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" || len(rid) > 128 {
			rid = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), rid)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		common.LoggerFrom(r.Context(), s.logger).Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

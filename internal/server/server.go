// Пакет server — HTTP-сервер Tickly с graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	apierrors "github.com/bigkaa/tickly/internal/api/errors"
	"github.com/bigkaa/tickly/internal/api/handlers"
	"github.com/bigkaa/tickly/internal/api/middleware"
	"github.com/bigkaa/tickly/internal/config"
)

// Handlers — обработчики, которые подключает роутер.
type Handlers struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketHandler
	Admin   *handlers.AdminHandler
	Auth    *handlers.AuthHandler
}

// Server — HTTP-сервер Tickly.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, h Handlers, session *middleware.SessionAuth) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(cfg, logger, h, session),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер Tickly API.
func NewRouter(cfg *config.Config, logger *slog.Logger, h Handlers, session *middleware.SessionAuth) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health и metrics — без сессии
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)

	router.Route("/api", func(r chi.Router) {
		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", h.Tickets.List)
			r.Post("/", h.Tickets.Create)
			r.Get("/stats", h.Tickets.Stats)
			r.Patch("/{id}", h.Tickets.Update)
			r.Delete("/{id}", h.Tickets.Delete)
		})

		// Вход и регистрация — с ограничением частоты по IP (0 — без ограничения)
		r.Group(func(r chi.Router) {
			if cfg.LoginRateLimit > 0 {
				r.Use(httprate.Limit(cfg.LoginRateLimit, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
						apierrors.TooManyRequests(w, "Too many requests, try again later")
					}),
				))
			}
			r.Post("/login", h.Auth.Login)
			r.Post("/signup", h.Auth.Signup)
		})
		r.Post("/logout", h.Auth.Logout)

		// Маршруты, которым нужна сессия из cookie
		r.Group(func(r chi.Router) {
			r.Use(session.Middleware())
			r.Get("/checkAuth", h.Auth.CheckAuth)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/tickets", h.Admin.ListTickets)
				r.Get("/tickets/{id}", h.Admin.GetTicket)
				r.Post("/tickets/{id}", h.Admin.SaveNote)
				r.Patch("/tickets/{id}", h.Admin.PatchTicket)
				r.Get("/stats", h.Admin.Stats)
				r.Get("/users", h.Admin.ListUsers)
				r.Patch("/users/update-role", h.Admin.UpdateRole)
			})
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}

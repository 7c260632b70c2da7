// Package httpapi exposes the locker operations over HTTP/JSON for the
// mobile client.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/metrics"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Users covers account operations.
type Users interface {
	Register(ctx context.Context, username, password, code string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

// Lockers covers the locker operations. Token-taking calls authenticate the
// caller themselves.
type Lockers interface {
	ListLockers(ctx context.Context) []models.LockerView
	ReserveAndOpen(ctx context.Context, token string, lockerID int) error
	Unlock(ctx context.Context, token string, lockerID int) error
	ReturnLocker(ctx context.Context, token string, lockerID int) error
	LockAnyone(ctx context.Context, lockerID int) error
}

type Options struct {
	Address     string
	CORSOrigins []string
	Logger      logging.Logger
	Metrics     *metrics.Metrics
	// ShutdownTimeout bounds graceful shutdown after ctx is cancelled.
	ShutdownTimeout time.Duration
}

type Server struct {
	address  string
	origins  []string
	users    Users
	lockers  Lockers
	log      logging.Logger
	metrics  *metrics.Metrics
	shutdown time.Duration
}

func NewServer(users Users, lockers Lockers, opts Options) *Server {
	s := &Server{
		address:  opts.Address,
		origins:  opts.CORSOrigins,
		users:    users,
		lockers:  lockers,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		shutdown: opts.ShutdownTimeout,
	}
	if s.log == nil {
		s.log = logging.Nop{}
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	if s.shutdown <= 0 {
		s.shutdown = 5 * time.Second
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	r.Get("/lockers", s.handleListLockers)
	r.Post("/lockers/{id}/lock", s.handleLock)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth)
		r.Post("/lockers/deposit", s.handleDeposit)
		r.Post("/lockers/{id}/unlock", s.handleUnlock)
		r.Post("/lockers/{id}/return", s.handleReturn)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.log.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdown)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.log.Warn(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

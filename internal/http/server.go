package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catat/internal/core"
	applog "catat/internal/log"
	"catat/internal/metrics"
)

// CommandExecutor runs a parsed chat command and returns the reply text.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd core.Command, sender string) (string, error)
}

// Messenger sends a reply back to the chat user.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Deps struct {
	Executor    CommandExecutor
	Messenger   Messenger
	VerifyToken string
	Logger      *applog.Logger
	// Ready maps a dependency name to its probe; all must pass for /readyz.
	Ready map[string]ReadinessCheck
}

type Server struct {
	http.Server
	executor    CommandExecutor
	messenger   Messenger
	verifyToken string
	logger      *applog.Logger
	ready       map[string]ReadinessCheck

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// Replies are sent before the acknowledgement is written.
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		executor:    deps.Executor,
		messenger:   deps.Messenger,
		verifyToken: deps.VerifyToken,
		logger:      logger.WithComponent(applog.ComponentWebhook),
		ready:       deps.Ready,
	}
	s.Handler = s.routes(logger)
	return s
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(clientIP)
	r.Use(applog.Middleware(logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(applog.AccessLog(observeWebhook))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/webhook", s.handleVerify)
	r.Post("/webhook", s.ackOnPanic(s.handleReceive))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func observeWebhook(r *http.Request, status int) {
	if r.URL.Path != "/webhook" {
		return
	}
	metrics.WebhookRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "dependency", name, applog.FieldError, err)
			http.Error(w, "not ready: "+name, http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

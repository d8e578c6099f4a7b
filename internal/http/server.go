// Package http exposes the message pipeline as a JSON webhook.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/log"
	"keuangan/internal/middleware/ratelimit"
	"keuangan/internal/middleware/security"
	"keuangan/internal/middleware/trace"
)

const (
	// DefaultMaxBodyBytes leaves room for a base64 receipt photo.
	DefaultMaxBodyBytes = 10 << 20
	// DefaultIPRequestsPerMinute limits webhook callers per client IP.
	DefaultIPRequestsPerMinute = 120
)

// MessageHandler turns one inbound event into a reply. ok=false means no
// reply is sent.
type MessageHandler interface {
	Handle(ctx context.Context, ev core.InboundEvent) (reply string, ok bool)
}

// ReadyFunc reports whether dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

type ServerConfig struct {
	Addr                string
	Handler             MessageHandler
	Logger              *log.Logger
	Ready               ReadyFunc
	MaxBodyBytes        int64
	IPRequestsPerMinute int
	TrustedProxies      []string
}

type Server struct {
	http.Server
	handler  MessageHandler
	ready    ReadyFunc
	maxBody  int64
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.IPRequestsPerMinute <= 0 {
		cfg.IPRequestsPerMinute = DefaultIPRequestsPerMinute
	}
	logger := cfg.Logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err.Error())
		}
	}

	s := &Server{
		handler:  cfg.Handler,
		ready:    cfg.Ready,
		maxBody:  cfg.MaxBodyBytes,
		logger:   logger,
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.IPRequestsPerMinute}),
		tracer:   trace.NewMiddleware(logger, detector.ClientIP),
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/messages", s.limiter.Middleware(detector.ClientIP, s.onRateLimit)(http.HandlerFunc(s.handleMessage)))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = detector.Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = log.Middleware(logger)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		// AI calls can take tens of seconds
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// Shutdown gracefully shuts down the server and the limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r), log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

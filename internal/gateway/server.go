package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/cloudbridge/internal/audit"
	"github.com/erauner12/cloudbridge/internal/auth"
	"github.com/erauner12/cloudbridge/internal/tools"
)

// maxBodyBytes bounds request bodies read by the JSON-RPC handlers
const maxBodyBytes = 1 << 20

// ServerInfo is reported by initialize
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Options holds the dependencies of a Server
type Options struct {
	Dispatcher     *tools.Dispatcher
	Audit          audit.Sink
	Policy         Policy
	AllowedOrigins []string
	Auth           auth.JWTCfg
	Info           ServerInfo
}

// Server is the HTTP surface of the gateway
type Server struct {
	dispatcher *tools.Dispatcher
	registry   *tools.Registry
	audit      audit.Sink
	policy     Policy
	origins    []string
	auth       auth.JWTCfg
	info       ServerInfo
	httpServer *http.Server
}

// New creates a Server. A nil Audit sink disables auditing of listings.
func New(opts Options) (*Server, error) {
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if opts.Audit == nil {
		opts.Audit = audit.Discard{}
	}
	if opts.Policy.ExpectedMethod == "" {
		opts.Policy.ExpectedMethod = MethodToolsCall
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.Info.Name == "" {
		opts.Info.Name = "cloudbridge"
	}

	return &Server{
		dispatcher: opts.Dispatcher,
		registry:   opts.Dispatcher.Registry(),
		audit:      opts.Audit,
		policy:     opts.Policy,
		origins:    opts.AllowedOrigins,
		auth:       opts.Auth,
		info:       opts.Info,
	}, nil
}

// Routes creates the HTTP router with all gateway endpoints
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{CorrelationHeader},
		AllowCredentials: true,
	}).Handler)

	// Health checks (unauthenticated)
	r.Get("/", s.handleRoot)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSize(maxBodyBytes))
		if s.auth.Enabled() {
			r.Use(auth.Middleware(s.auth))
		}

		r.Get("/mcp/tools/list", s.handleListGet)
		r.Post("/mcp/tools/list", s.handleListPost)
		r.Post("/mcp/tools/call", s.handleCall)
		r.Post("/mcp", s.handleMCP)
	})

	log.Info().
		Int("tools", s.registry.Len()).
		Bool("auth", s.auth.Enabled()).
		Bool("strictMethod", s.policy.CheckMethod).
		Bool("strictParams", s.policy.StrictParams).
		Msg("HTTP routes registered")
	return r
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Starting gateway")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

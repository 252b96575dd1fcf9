package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/helixml/passage"
	apimiddleware "github.com/helixml/passage/infrastructure/api/middleware"
	v1 "github.com/helixml/passage/infrastructure/api/v1"
	mcpinternal "github.com/helixml/passage/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const requestTimeout = 60 * time.Second

// APIServerOption configures an APIServer.
type APIServerOption func(*APIServer)

// WithVersion sets the version reported by /health and the MCP server.
func WithVersion(version string) APIServerOption {
	return func(a *APIServer) {
		if version != "" {
			a.version = version
		}
	}
}

// WithAllowedOrigins sets the CORS allowed origins. Defaults to all.
func WithAllowedOrigins(origins ...string) APIServerOption {
	return func(a *APIServer) {
		if len(origins) > 0 {
			a.allowedOrigins = origins
		}
	}
}

// APIServer provides an HTTP API backed by a passage Client.
type APIServer struct {
	client         *passage.Client
	apiKeys        []string
	version        string
	allowedOrigins []string
	router         chi.Router
	routerCalled   bool
	logger         *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given passage Client.
// The client's API keys protect answer generation; search, stats, health
// and MCP remain open.
func NewAPIServer(client *passage.Client, opts ...APIServerOption) *APIServer {
	a := &APIServer{
		client:         client,
		apiKeys:        client.APIKeys(),
		version:        "dev",
		allowedOrigins: []string{"*"},
		logger:         client.Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, Run creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", apimiddleware.APIKeyHeader, apimiddleware.CorrelationIDHeader, "Mcp-Session-Id"},
		ExposedHeaders:   []string{apimiddleware.CorrelationIDHeader, "Mcp-Session-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(apimiddleware.CorrelationID)
	router.Use(apimiddleware.Logging(a.logger))

	router.Get("/health", a.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.Mount("/search", v1.NewSearchRouter(c).Routes())
		r.Mount("/stats", v1.NewStatsRouter(c).Routes())

		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.APIKeyAuth(a.apiKeys))
			r.Mount("/ask", v1.NewAskRouter(c).Routes())
		})
	})

	// MCP streams responses, so it is mounted outside the timeout group.
	var answerer mcpinternal.Answerer
	if c.Answers != nil {
		answerer = c.Answers
	}
	mcpSrv := mcpinternal.NewServer(c.Search, answerer, a.version, a.logger)
	router.Mount("/mcp", server.NewStreamableHTTPServer(mcpSrv.MCPServer()))
}

func (a *APIServer) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]any{"status": "healthy", "version": a.version}
	if _, err := a.client.Stats(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["error"] = err.Error()
	}
	apimiddleware.WriteJSON(w, status, body)
}

// Run serves the API on addr until ctx is done, then shuts down gracefully.
func (a *APIServer) Run(ctx context.Context, addr string) error {
	return a.httpServer(addr).Run(ctx)
}

// Serve is Run on an existing listener.
func (a *APIServer) Serve(ctx context.Context, ln net.Listener) error {
	return a.httpServer(ln.Addr().String()).Serve(ctx, ln)
}

func (a *APIServer) httpServer(addr string) *Server {
	srv := NewServer(addr, a.logger)
	if a.routerCalled && a.router != nil {
		srv.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(srv.Router())
	}
	return srv
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}

package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/helixml/passage"
	"github.com/helixml/passage/infrastructure/api/jsonapi"
	"github.com/helixml/passage/infrastructure/api/middleware"
)

// StatsRouter reports the state of the store.
type StatsRouter struct {
	client     *passage.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewStatsRouter creates a new StatsRouter.
func NewStatsRouter(client *passage.Client) *StatsRouter {
	return &StatsRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for stats endpoints.
func (r *StatsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.Get)
	return router
}

// Get handles GET /api/v1/stats.
func (r *StatsRouter) Get(w http.ResponseWriter, req *http.Request) {
	stats, err := r.client.Stats(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	writeDocument(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.StatsResource(stats.Chunks, stats.Dimension)))
}

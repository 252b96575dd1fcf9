package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/helixml/passage"
	"github.com/helixml/passage/application/service"
	domainservice "github.com/helixml/passage/domain/service"
	"github.com/helixml/passage/infrastructure/api/jsonapi"
	"github.com/helixml/passage/infrastructure/api/middleware"
	"github.com/helixml/passage/infrastructure/api/v1/dto"
)

// SearchRouter handles search API endpoints.
type SearchRouter struct {
	client     *passage.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewSearchRouter creates a new SearchRouter.
func NewSearchRouter(client *passage.Client) *SearchRouter {
	return &SearchRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for search endpoints.
func (r *SearchRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", r.Search)
	return router
}

// Search handles POST /api/v1/search.
func (r *SearchRouter) Search(w http.ResponseWriter, req *http.Request) {
	var body dto.SearchRequest
	if err := middleware.DecodeJSON(req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	attrs := body.Data.Attributes
	opts, err := searchOptions(attrs)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	results, err := r.client.Search.Query(req.Context(), attrs.Query, opts...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	doc := jsonapi.NewListResponse(r.serializer.PassageResources(results))
	doc.Meta = jsonapi.Meta{"count": len(results)}
	writeDocument(w, http.StatusOK, doc)
}

// searchOptions validates the retrieval parameters of a request.
func searchOptions(attrs dto.SearchAttributes) ([]service.SearchOption, error) {
	var opts []service.SearchOption
	if attrs.TopK != nil {
		k := *attrs.TopK
		if k < 1 || k > domainservice.MaxTopK {
			return nil, middleware.NewAPIError(http.StatusBadRequest,
				fmt.Sprintf("top_k must be between 1 and %d", domainservice.MaxTopK), nil)
		}
		opts = append(opts, service.WithTopK(k))
	}
	if attrs.MinSimilarity != nil {
		s := *attrs.MinSimilarity
		if s < -1 || s > 1 {
			return nil, middleware.NewAPIError(http.StatusBadRequest,
				"min_similarity must be between -1 and 1", nil)
		}
		opts = append(opts, service.WithMinSimilarity(s))
	}
	return opts, nil
}

func writeDocument(w http.ResponseWriter, status int, doc *jsonapi.Document) {
	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

package v1

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/helixml/passage"
	"github.com/helixml/passage/application/service"
	"github.com/helixml/passage/infrastructure/api/jsonapi"
	"github.com/helixml/passage/infrastructure/api/middleware"
	"github.com/helixml/passage/infrastructure/api/v1/dto"
	"github.com/helixml/passage/internal/log"
)

// AskRouter handles answer generation endpoints.
type AskRouter struct {
	client     *passage.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewAskRouter creates a new AskRouter.
func NewAskRouter(client *passage.Client) *AskRouter {
	return &AskRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for ask endpoints.
func (r *AskRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", r.Ask)
	return router
}

// Ask handles POST /api/v1/ask.
func (r *AskRouter) Ask(w http.ResponseWriter, req *http.Request) {
	if r.client.Answers == nil {
		middleware.WriteError(w, req,
			fmt.Errorf("answer generation is not configured: %w", service.ErrNoTextProvider), r.logger)
		return
	}

	var body dto.AskRequest
	if err := middleware.DecodeJSON(req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	attrs := body.Data.Attributes
	searchOpts, err := searchOptions(attrs.SearchAttributes)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	opts := []service.AnswerOption{service.WithSearch(searchOpts...)}
	if attrs.Model != nil {
		opts = append(opts, service.WithModel(*attrs.Model))
	}
	if attrs.Temperature != nil {
		opts = append(opts, service.WithTemperature(*attrs.Temperature))
	}

	answer, err := r.client.Answers.Ask(req.Context(), attrs.Query, opts...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	id := log.CorrelationID(req.Context())
	if id == "" {
		id = log.NewCorrelationID()
	}
	doc := r.serializer.AnswerDocument(id, attrs.Query, answer.Text(), answer.Model(), answer.Usage(), answer.Passages())
	writeDocument(w, http.StatusOK, doc)
}

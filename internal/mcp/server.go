// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/helixml/passage/application/service"
	"github.com/helixml/passage/domain/passage"
	domainservice "github.com/helixml/passage/domain/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Searcher retrieves ranked passages for MCP tools.
type Searcher interface {
	Query(ctx context.Context, query string, opts ...service.SearchOption) ([]passage.Result, error)
}

// Answerer generates grounded answers for MCP tools.
type Answerer interface {
	Ask(ctx context.Context, query string, opts ...service.AnswerOption) (service.Answer, error)
}

// Server wraps the MCP server with passage tools.
type Server struct {
	mcpServer *server.MCPServer
	searcher  Searcher
	answerer  Answerer
	version   string
	logger    *slog.Logger
}

// NewServer creates a new MCP server. answerer may be nil, in which case the
// ask tool is not registered.
func NewServer(searcher Searcher, answerer Answerer, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		searcher: searcher,
		answerer: answerer,
		version:  version,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"passage",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	searchTool := mcp.NewTool("search",
		mcp.WithDescription("Find the document passages most similar to a natural-language query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
		mcp.WithNumber("top_k",
			mcp.Description(fmt.Sprintf("Number of passages to return, 1 to %d (default: %d)", domainservice.MaxTopK, domainservice.DefaultTopK)),
			mcp.Min(1),
			mcp.Max(domainservice.MaxTopK),
		),
		mcp.WithNumber("min_similarity",
			mcp.Description("Drop passages whose cosine similarity is below this value, -1 to 1"),
			mcp.Min(-1),
			mcp.Max(1),
		),
	)
	mcpServer.AddTool(searchTool, s.handleSearch)

	if s.answerer != nil {
		askTool := mcp.NewTool("ask",
			mcp.WithDescription("Answer a question using only the retrieved passages as context"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("The question to answer"),
			),
			mcp.WithNumber("top_k",
				mcp.Description(fmt.Sprintf("Number of passages to use as context, 1 to %d", domainservice.MaxTopK)),
				mcp.Min(1),
				mcp.Max(domainservice.MaxTopK),
			),
		)
		mcpServer.AddTool(askTool, s.handleAsk)
	}

	versionTool := mcp.NewTool("get_version",
		mcp.WithDescription("Return the passage server version"),
	)
	mcpServer.AddTool(versionTool, s.handleGetVersion)
}

type passageResult struct {
	ID         int64   `json:"id"`
	URI        string  `json:"uri"`
	Text       string  `json:"text"`
	Page       int     `json:"page,omitempty"`
	Source     string  `json:"source,omitempty"`
	Similarity float64 `json:"similarity"`
}

func toPassageResults(results []passage.Result) []passageResult {
	out := make([]passageResult, 0, len(results))
	for _, r := range results {
		md := r.Metadata()
		uri := NewPassageURI(r.ID())
		item := passageResult{
			ID:         r.ID(),
			Text:       r.Text(),
			Similarity: r.Similarity(),
		}
		if page, ok := md.Page(); ok {
			item.Page = page
			uri = uri.WithPage(page)
		}
		if source, ok := md["source"].(string); ok {
			item.Source = source
			uri = uri.WithSource(source)
		}
		item.URI = uri.String()
		out = append(out, item)
	}
	return out
}

// searchOptions validates the optional retrieval arguments of a tool call.
func searchOptions(request mcp.CallToolRequest) ([]service.SearchOption, error) {
	var opts []service.SearchOption
	args := request.GetArguments()
	if _, ok := args["top_k"]; ok {
		k := request.GetInt("top_k", 0)
		if k < 1 || k > domainservice.MaxTopK {
			return nil, fmt.Errorf("top_k must be between 1 and %d", domainservice.MaxTopK)
		}
		opts = append(opts, service.WithTopK(k))
	}
	if _, ok := args["min_similarity"]; ok {
		threshold := request.GetFloat("min_similarity", 0)
		if threshold < -1 || threshold > 1 {
			return nil, errors.New("min_similarity must be between -1 and 1")
		}
		opts = append(opts, service.WithMinSimilarity(threshold))
	}
	return opts, nil
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	opts, err := searchOptions(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := s.searcher.Query(ctx, query, opts...)
	if err != nil {
		s.logger.Warn("mcp search failed", slog.String("error", err.Error()))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	body, err := json.Marshal(toPassageResults(results))
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	opts, err := searchOptions(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := s.answerer.Ask(ctx, query, service.WithSearch(opts...))
	if err != nil {
		s.logger.Warn("mcp ask failed", slog.String("error", err.Error()))
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	body, err := json.Marshal(struct {
		Answer   string          `json:"answer"`
		Model    string          `json:"model,omitempty"`
		Passages []passageResult `json:"passages"`
	}{
		Answer:   answer.Text(),
		Model:    answer.Model(),
		Passages: toPassageResults(answer.Passages()),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal answer: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) handleGetVersion(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.version), nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

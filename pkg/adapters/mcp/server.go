// Package mcp exposes the validation engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SchemasURI is the resource listing every entity description.
const SchemasURI = "formguard://schemas"

// ValidateResponse aligns with the HTTP response body.
type ValidateResponse struct {
	Entity string        `json:"entity" jsonschema_description:"The entity the payload was checked against"`
	Valid  bool          `json:"valid" jsonschema_description:"Whether the payload satisfied every rule"`
	Value  any           `json:"value,omitempty" jsonschema_description:"The normalized payload when valid"`
	Errors schema.Errors `json:"errors,omitempty" jsonschema_description:"Ordered field errors when invalid"`
}

// EntitiesResponse lists the registered entity names.
type EntitiesResponse struct {
	Entities []string `json:"entities" jsonschema_description:"Registered entity names, sorted"`
}

// Engine defines the interface required by the MCP server.
type Engine interface {
	Validate(ctx context.Context, entity string, input any, opts schema.Options) (schema.Result, error)
	Describe(entity string) (schema.Description, error)
	Entities() []string
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("formguard-mcp", strings.TrimSpace(formguard.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List the entity names payloads can be validated against."),
		mcp.WithOutputSchema[EntitiesResponse](),
	), mcp.NewStructuredToolHandler(s.handleListEntities))

	s.mcpServer.AddTool(mcp.NewTool("describe_entity",
		mcp.WithDescription("Describe the fields, constraints and cross-field rules of an entity."),
		mcp.WithString("entity", mcp.Required(), mcp.Description("Entity name, e.g. merchant")),
	), s.handleDescribeEntity)

	s.mcpServer.AddTool(mcp.NewTool("validate_entity",
		mcp.WithDescription("Validate a JSON payload against an entity schema and return the normalized value or the field errors."),
		mcp.WithString("entity", mcp.Required(), mcp.Description("Entity name")),
		mcp.WithString("payload", mcp.Required(), mcp.Description("JSON object to validate")),
		mcp.WithBoolean("strict", mcp.Description("Report keys the entity does not declare")),
		mcp.WithBoolean("halt", mcp.Description("Stop at the first failing cross-field rule")),
		mcp.WithOutputSchema[ValidateResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))
}

func (s *Server) handleListEntities(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EntitiesResponse, error) {
	return EntitiesResponse{Entities: s.engine.Entities()}, nil
}

func (s *Server) handleDescribeEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entity := request.GetString("entity", "")
	d, err := s.engine.Describe(entity)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode description: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	entity, _ := args["entity"].(string)
	raw, _ := args["payload"].(string)

	payload, err := decodePayload(raw)
	if err != nil {
		return ValidateResponse{}, err
	}

	var opts schema.Options
	opts.StrictUnknownKeys, _ = args["strict"].(bool)
	opts.HaltOnFirstRefinementFailure, _ = args["halt"].(bool)

	res, err := s.engine.Validate(ctx, entity, payload, opts)
	if err != nil {
		if !errors.Is(err, formguard.ErrUnknownEntity) {
			s.logger.Error("MCP Validate failed", "entity", entity, "error", err)
		}
		return ValidateResponse{}, err
	}
	return ValidateResponse{
		Entity: entity,
		Valid:  res.Valid(),
		Value:  res.Value,
		Errors: res.Errors,
	}, nil
}

// decodePayload parses exactly one JSON value, keeping numbers as json.Number.
func decodePayload(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("payload must be a single JSON value")
	}
	return payload, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SchemasURI, "Entity Schemas",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := s.schemasJSON()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SchemasURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) schemasJSON() ([]byte, error) {
	all := make(map[string]schema.Description)
	for _, name := range s.engine.Entities() {
		d, err := s.engine.Describe(name)
		if err != nil {
			return nil, fmt.Errorf("failed to describe %s: %w", name, err)
		}
		all[name] = d
	}
	return json.Marshal(all)
}

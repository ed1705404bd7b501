// Package mcp exposes the reconciliation engine over the Model Context
// Protocol, on stdio by default and optionally over SSE.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"aistudio-bridge/internal/browser"
	"aistudio-bridge/internal/catalog"
	"aistudio-bridge/internal/config"
	"aistudio-bridge/internal/journal"
	"aistudio-bridge/internal/params"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server wires the MCP runtime, the browser session, the parameter cache, and
// the fact journal.
type Server struct {
	cfg       config.Config
	sessions  *browser.SessionManager
	cache     *params.SurfaceSession
	journal   *journal.Journal
	catalog   *catalog.Catalog
	snaps     *browser.SnapshotWriter
	tools     map[string]Tool
	mcpServer *mcpserver.MCPServer
}

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// NewServer constructs the bridge MCP server and registers all tools.
func NewServer(cfg config.Config, sessions *browser.SessionManager, cache *params.SurfaceSession, jrnl *journal.Journal, cat *catalog.Catalog, snaps *browser.SnapshotWriter) (*Server, error) {
	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)

	server := &Server{
		cfg:       cfg,
		sessions:  sessions,
		cache:     cache,
		journal:   jrnl,
		catalog:   cat,
		snaps:     snaps,
		tools:     make(map[string]Tool),
		mcpServer: mcpSrv,
	}

	server.registerAllTools()
	return server, nil
}

// controller opens (or reuses) the playground page and builds a controller
// for one request.
func (s *Server) controller(ctx context.Context) (*params.Controller, string, error) {
	page, err := s.sessions.OpenPlayground(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("open playground: %w", err)
	}

	surface := browser.NewSurface(page, s.cfg.Browser, s.cfg.Selectors)
	reqID := uuid.NewString()

	gen := s.cfg.Generation
	ctrl := params.NewController(reqID, params.ControllerOptions{
		Surface: surface,
		Session: s.cache,
		Defaults: params.GenerationDefaults{
			Temperature:     gen.Temperature,
			MaxOutputTokens: gen.MaxOutputTokens,
			TopP:            gen.TopP,
			StopSequences:   gen.StopSequences,
		},
		Thinking: params.ThinkingDefaults{
			Enabled:       gen.ThinkingEnabled,
			BudgetEnabled: gen.ThinkingBudgetEnabled,
			Budget:        gen.ThinkingBudget,
		},
		Features: params.FeatureFlags{
			URLContext:   s.cfg.Features.URLContext,
			GoogleSearch: s.cfg.Features.GoogleSearch,
		},
		Timing: params.Timing{
			FillSettle:       s.cfg.Browser.FillSettle(),
			ToggleSettle:     s.cfg.Browser.ToggleSettle(),
			SubmitEnableWait: s.cfg.Browser.SubmitEnableWait(),
			ResponseWait:     s.cfg.Browser.ResponseWait(),
		},
		Ceilings:  s.catalog,
		Journal:   s.journal,
		Snapshots: s.snaps,
	})
	return ctrl, reqID, nil
}

// Start launches the stdio server.
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// StartSSE hosts the server over HTTP using SSE endpoints with graceful shutdown.
func (s *Server) StartSSE(ctx context.Context, port int) error {
	sseServer := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL("http://localhost:"+strconv.Itoa(port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Printf("SSE server shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// ExecuteTool executes a tool directly (used by tests).
func (s *Server) ExecuteTool(name string, args map[string]interface{}) (interface{}, error) {
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(context.Background(), args)
}

func (s *Server) registerAllTools() {
	s.registerTool(&LaunchBrowserTool{sessions: s.sessions})
	s.registerTool(&ShutdownBrowserTool{sessions: s.sessions})

	s.registerTool(&AdjustParametersTool{server: s})
	s.registerTool(&SubmitPromptTool{server: s})
	s.registerTool(&GetResponseTool{server: s})
	s.registerTool(&GenerateTool{server: s})

	s.registerTool(&DiagnoseReconciliationTool{journal: s.journal})
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		payload := marshalToolPayload(tool.Name(), result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
			IsError: false,
		}, nil
	}
}

func marshalToolPayload(toolName string, result interface{}) []byte {
	payload, marshalErr := json.Marshal(result)
	if marshalErr == nil {
		return payload
	}

	fallback := map[string]interface{}{
		"success": false,
		"error":   fmt.Sprintf("tool %s returned non-serializable payload: %v", toolName, marshalErr),
	}
	payload, fallbackErr := json.Marshal(fallback)
	if fallbackErr == nil {
		return payload
	}

	return []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, toolName))
}

package mcp_server

import (
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/brontoio/bronto-mcp-server/internal/config"
	"github.com/brontoio/bronto-mcp-server/internal/handler/tools"
)

type MCPServer struct {
	logger  *zap.Logger
	handler *tools.Handler
	config  *config.Config
}

func NewMCPServer(log *zap.Logger, handler *tools.Handler, cfg *config.Config) *MCPServer {
	return &MCPServer{logger: log, handler: handler, config: cfg}
}

func (m *MCPServer) Start() error {
	s := server.NewMCPServer("BrontoMCP", "0.1.0", server.WithLogging(), server.WithToolCapabilities(false))

	m.logger.Info("Starting Bronto MCP Server",
		zap.String("server_name", "BrontoMCPServer"),
		zap.String("deployment_mode", m.config.DeploymentMode))

	// Register all handlers
	m.handler.RegisterDatasetHandlers(s)
	m.handler.RegisterLogsHandlers(s)
	m.handler.RegisterSearchHandlers(s)
	m.handler.RegisterTimeHandlers(s)

	m.logger.Info("All handlers registered successfully")

	if m.config.DeploymentMode == "cloud" {
		return m.startCloud(s)
	}
	return m.startLocal(s)
}

func (m *MCPServer) startLocal(s *server.MCPServer) error {
	m.logger.Info("MCP Server running in LOCAL mode (stdio)")
	return server.ServeStdio(s)
}

func (m *MCPServer) startCloud(s *server.MCPServer) error {
	m.logger.Info("MCP Server running in cloud hosted mode")

	addr := fmt.Sprintf(":%s", m.config.Port)

	mux := http.NewServeMux()

	httpServer := server.NewStreamableHTTPServer(s)
	mux.Handle("/mcp", httpServer)

	m.logger.Info("Listening for MCP clients",
		zap.String("addr", addr),
		zap.String("mcp_endpoint", "/mcp"))

	return http.ListenAndServe(addr, mux)
}

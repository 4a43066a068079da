package main

import (
	"fmt"
	"os"

	"github.com/brontoio/bronto-mcp-server/internal/client"
	"github.com/brontoio/bronto-mcp-server/internal/config"
	"github.com/brontoio/bronto-mcp-server/internal/handler/tools"
	"github.com/brontoio/bronto-mcp-server/internal/logger"
	mcpserver "github.com/brontoio/bronto-mcp-server/internal/mcp-server"
	"github.com/brontoio/bronto-mcp-server/internal/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	brontoClient := client.NewClient(log, cfg.APIEndpoint, cfg.APIKey,
		client.WithTimeout(cfg.RequestTimeout))

	tel := telemetry.New(log, cfg.TelemetryWriteKey)
	defer tel.Close()

	handler := tools.NewHandler(log, brontoClient, cfg, tel)

	if err := mcpserver.NewMCPServer(log, handler, cfg).Start(); err != nil {
		log.Fatal(fmt.Sprintf("Failed to start server: %v", err))
	}
}

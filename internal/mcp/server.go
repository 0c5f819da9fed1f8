package mcp

import (
	"context"
	"log"
	"os"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/rmksrv/mkxray-web/internal/installcmd"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

// MCPServer exposes install command generation to AI assistants via MCP.
type MCPServer struct {
	api    DaemonAPI
	logger zerolog.Logger
}

// New creates an MCPServer. Call Run() to start serving on stdio.
func New(cfg Config, logger zerolog.Logger) *MCPServer {
	return &MCPServer{
		api:    NewAPIClient(cfg.Daemon.Socket),
		logger: logger.With().Str("component", "mcp").Logger(),
	}
}

// SetDaemonAPI overrides the daemon API client. Intended for testing with a mock.
func (s *MCPServer) SetDaemonAPI(api DaemonAPI) {
	s.api = api
}

// Run registers MCP tools and serves on stdio.
// It blocks until stdin is closed or the context is cancelled.
func (s *MCPServer) Run(ctx context.Context) error {
	srv := s.newServer()

	stdio := mcpserver.NewStdioServer(srv)
	stdio.SetErrorLogger(log.New(os.Stderr, "", log.LstdFlags))

	s.logger.Info().Msg("MCP server starting on stdio")
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *MCPServer) newServer() *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(
		"mkxray",
		Version,
		mcpserver.WithRecovery(),
	)
	s.registerTools(srv)
	return srv
}

func (s *MCPServer) registerTools(srv *mcpserver.MCPServer) {
	archs := make([]string, 0, len(installcmd.Archs()))
	for _, a := range installcmd.Archs() {
		archs = append(archs, a.String())
	}

	srv.AddTool(
		mcplib.NewTool("install_command",
			mcplib.WithDescription("Build the one-line shell command that downloads and starts mkxray on a Linux host"),
			mcplib.WithString("dest", mcplib.Description("Address mkxray should mimic, passed as -addr (e.g. \"www.samsung.com:443\"). Omit for none")),
			mcplib.WithString("arch", mcplib.Enum(archs...), mcplib.DefaultString(installcmd.DefaultArch.String()), mcplib.Description("Target CPU architecture")),
			mcplib.WithBoolean("escape_dest", mcplib.Description("Shell-quote dest so addresses with quotes or spaces survive")),
		),
		s.handleInstallCommand,
	)

	srv.AddTool(
		mcplib.NewTool("list_archs",
			mcplib.WithDescription("List the CPU architectures mkxray release archives exist for"),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		s.handleListArchs,
	)

	srv.AddTool(
		mcplib.NewTool("get_status",
			mcplib.WithDescription("Get mkxray-web daemon status including uptime, NATS health, and generation counts"),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		s.handleGetStatus,
	)
}

package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/rmksrv/mkxray-web/internal/api"
	"github.com/rmksrv/mkxray-web/internal/installcmd"
	"github.com/rmksrv/mkxray-web/pkg/protocol"
)

func (s *MCPServer) handleInstallCommand(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	dest := req.GetString("dest", "")
	arch := req.GetString("arch", installcmd.DefaultArch.String())
	escape := req.GetBool("escape_dest", false)

	// Built locally so the tool works without a running daemon.
	res, err := installcmd.Describe(dest, arch, installcmd.Options{EscapeDest: escape})
	if err != nil {
		return textError("failed to build install command: " + err.Error()), nil
	}
	out := api.ToResponse(res)

	if s.api != nil {
		_, err := s.api.InstallCommand(ctx, protocol.InstallCommandRequest{
			Dest:       dest,
			Arch:       arch,
			EscapeDest: escape,
			Source:     protocol.SourceMCP,
		})
		if err != nil {
			s.logger.Debug().Err(err).Msg("daemon unreachable, generation not recorded")
		}
	}
	return textJSON(out)
}

func (s *MCPServer) handleListArchs(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	resp := protocol.ArchsResponse{Default: installcmd.DefaultArch.String()}
	for _, a := range installcmd.Archs() {
		resp.Archs = append(resp.Archs, a.String())
	}
	return textJSON(resp)
}

func (s *MCPServer) handleGetStatus(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	status, err := s.api.GetStatus(ctx)
	if err != nil {
		return textError("failed to get status: " + err.Error()), nil
	}
	return textJSON(status)
}

// textResult returns a successful text result.
func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}

// textError returns an error text result.
func textError(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// textJSON marshals v to indented JSON and returns it as a text result.
func textJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return textError("failed to marshal response: " + err.Error()), nil
	}
	return textResult(string(data)), nil
}

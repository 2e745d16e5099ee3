// Package mcpserver exposes the relay's status API as MCP tools over stdio
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	relaymcp "github.com/relaybridge/zulip-relay/internal/mcp"
)

// RelayMCPServer provides MCP tools for inspecting a running relay
type RelayMCPServer struct {
	server *mcp.Server
	client *relaymcp.Client
}

// NewServer creates a new relay MCP server backed by the status API client
func NewServer(client *relaymcp.Client, version string) *RelayMCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "zulip-relay",
		Version: version,
	}, nil)

	s := &RelayMCPServer{
		server: server,
		client: client,
	}
	s.registerTools()
	return s
}

// registerTools registers all relay MCP tools
func (s *RelayMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "relay_status",
		Description: "Get the relay state: event queue cursor, forward counters, muted streams, rate limit state and whether notifications are currently silent.",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "relay_params",
		Description: "Get the relay configuration parameters (secrets excluded).",
	}, s.handleParams)
}

// EmptyInput is the input of tools without arguments
type EmptyInput struct{}

func (s *RelayMCPServer) handleStatus(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, any, error) {
	snap, err := s.client.GetStatus(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(snap)
}

func (s *RelayMCPServer) handleParams(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, any, error) {
	params, err := s.client.GetParams(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(map[string]any{"params": params})
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: "relay unreachable: " + err.Error()}},
	}
}

// Run starts the MCP server with stdio transport
func (s *RelayMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// GetServer returns the underlying MCP server
func (s *RelayMCPServer) GetServer() *mcp.Server {
	return s.server
}

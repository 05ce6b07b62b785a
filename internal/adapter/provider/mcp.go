package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"switchboard/internal/domain"
	"switchboard/internal/infra/config"
)

// mcpClient abstracts the MCP client interface for testability.
type mcpClient interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	Close() error
}

// MCPProvider exposes the tools of one MCP server as capabilities.
// Discovery runs once at construction; Refresh re-runs it.
type MCPProvider struct {
	name   string
	client mcpClient
	logger *slog.Logger

	mu   sync.RWMutex
	caps []domain.Capability
}

// NewMCPProvider connects to an MCP server and discovers its tools.
func NewMCPProvider(ctx context.Context, srv config.MCPServer, logger *slog.Logger) (*MCPProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var c mcpClient
	switch srv.Transport {
	case "stdio":
		client, err := mcpclient.NewStdioMCPClient(srv.Command, envSlice(srv.Env), srv.Args...)
		if err != nil {
			return nil, fmt.Errorf("create stdio client: %w", err)
		}
		c = client
	case "http":
		t, err := transport.NewStreamableHTTP(srv.URL)
		if err != nil {
			return nil, fmt.Errorf("create http transport: %w", err)
		}
		client := mcpclient.NewClient(t)
		if err := client.Start(ctx); err != nil {
			return nil, fmt.Errorf("start http client: %w", err)
		}
		c = client
	default:
		return nil, fmt.Errorf("unsupported transport %q", srv.Transport)
	}

	if ic, ok := c.(interface {
		Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	}); ok {
		initReq := mcp.InitializeRequest{}
		initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		initReq.Params.ClientInfo = mcp.Implementation{
			Name:    "switchboard",
			Version: "1.0.0",
		}
		if _, err := ic.Initialize(ctx, initReq); err != nil {
			c.Close()
			return nil, domain.WrapOp("initialize", err)
		}
	}

	p := newMCPProviderWithClient(srv.Name, c, logger)
	if err := p.Refresh(ctx); err != nil {
		c.Close()
		return nil, err
	}
	logger.Info("mcp provider connected", "name", srv.Name, "transport", srv.Transport)
	return p, nil
}

// newMCPProviderWithClient creates a provider with an injected client (for testing).
func newMCPProviderWithClient(name string, client mcpClient, logger *slog.Logger) *MCPProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPProvider{name: name, client: client, logger: logger}
}

// Name implements domain.CapabilityProvider.
func (p *MCPProvider) Name() string { return p.name }

// Capabilities implements domain.CapabilityProvider.
func (p *MCPProvider) Capabilities() []domain.Capability {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Capability, len(p.caps))
	copy(out, p.caps)
	return out
}

// Refresh re-discovers the server's tools.
func (p *MCPProvider) Refresh(ctx context.Context) error {
	result, err := p.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return domain.WrapOp("MCPProvider.Refresh", err)
	}

	caps := make([]domain.Capability, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			p.logger.Warn("tool schema not serializable, skipping",
				"provider", p.name, "tool", t.Name, "error", err)
			continue
		}
		caps = append(caps, domain.Capability{
			Provider:    p.name,
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}

	p.mu.Lock()
	p.caps = caps
	p.mu.Unlock()
	p.logger.Debug("mcp capabilities discovered", "provider", p.name, "count", len(caps))
	return nil
}

// Close shuts down the underlying MCP connection.
func (p *MCPProvider) Close() error {
	return p.client.Close()
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

var _ domain.CapabilityProvider = (*MCPProvider)(nil)

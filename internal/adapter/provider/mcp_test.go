package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/domain"
)

type fakeMCPClient struct {
	tools   []mcp.Tool
	listErr error
	closed  bool
}

func (f *fakeMCPClient) ListTools(_ context.Context, _ mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeMCPClient) Close() error {
	f.closed = true
	return nil
}

func TestMCPProviderDiscoversTools(t *testing.T) {
	client := &fakeMCPClient{tools: []mcp.Tool{
		mcp.NewTool("search", mcp.WithDescription("full text search"),
			mcp.WithString("query", mcp.Required())),
		mcp.NewTool("fetch", mcp.WithDescription("fetch a url")),
	}}
	p := newMCPProviderWithClient("web", client, nil)

	require.NoError(t, p.Refresh(context.Background()))
	caps := p.Capabilities()
	require.Len(t, caps, 2)
	assert.Equal(t, "web", caps[0].Provider)
	assert.Equal(t, "search", caps[0].Name)
	assert.Equal(t, "full text search", caps[0].Description)
	assert.NotEmpty(t, caps[0].InputSchema)
	assert.Equal(t, "web", p.Name())
}

func TestMCPProviderRefreshReplacesCapabilities(t *testing.T) {
	client := &fakeMCPClient{tools: []mcp.Tool{mcp.NewTool("old")}}
	p := newMCPProviderWithClient("srv", client, nil)
	require.NoError(t, p.Refresh(context.Background()))
	require.Len(t, p.Capabilities(), 1)

	client.tools = []mcp.Tool{mcp.NewTool("new-a"), mcp.NewTool("new-b")}
	require.NoError(t, p.Refresh(context.Background()))

	caps := p.Capabilities()
	require.Len(t, caps, 2)
	assert.Equal(t, "new-a", caps[0].Name)
}

func TestMCPProviderRefreshError(t *testing.T) {
	client := &fakeMCPClient{listErr: errors.New("connection reset")}
	p := newMCPProviderWithClient("srv", client, nil)

	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Empty(t, p.Capabilities())
}

func TestMCPProviderClose(t *testing.T) {
	client := &fakeMCPClient{}
	p := newMCPProviderWithClient("srv", client, nil)
	require.NoError(t, p.Close())
	assert.True(t, client.closed)
}

func TestMCPProviderCapabilitiesCopy(t *testing.T) {
	client := &fakeMCPClient{tools: []mcp.Tool{mcp.NewTool("a")}}
	p := newMCPProviderWithClient("srv", client, nil)
	require.NoError(t, p.Refresh(context.Background()))

	caps := p.Capabilities()
	caps[0].Name = "mutated"
	assert.Equal(t, "a", p.Capabilities()[0].Name)
}

func TestStaticProviderOwnsCapabilities(t *testing.T) {
	in := []domain.Capability{
		{Name: "edit", Provider: "someone-else"},
		{Name: "run"},
	}
	p := NewStaticProvider("builtin", in)

	caps := p.Capabilities()
	require.Len(t, caps, 2)
	assert.Equal(t, "builtin", caps[0].Provider)
	assert.Equal(t, "builtin", caps[1].Provider)
	assert.Equal(t, "builtin", p.Name())

	// The returned slice is a copy.
	caps[0].Name = "mutated"
	assert.Equal(t, "edit", p.Capabilities()[0].Name)
}

func TestEnvSlice(t *testing.T) {
	out := envSlice(map[string]string{"A": "1"})
	require.Len(t, out, 1)
	assert.Equal(t, "A=1", out[0])
	assert.Empty(t, envSlice(nil))
}

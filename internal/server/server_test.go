package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacebridge-io/spacebridge-mcp/internal/config"
	"github.com/spacebridge-io/spacebridge-mcp/internal/duplicates"
)

func testConfig() *config.Config {
	return &config.Config{
		APIURL:              "http://localhost:1",
		APIKey:              "test-key",
		Org:                 "acme",
		Project:             "web",
		SimilarityThreshold: duplicates.DefaultThreshold,
		DuplicateTopN:       duplicates.DefaultTopN,
		DuplicateStrategy:   duplicates.StrategyAuto,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// call sends one JSON-RPC request and returns the decoded result object.
func call(t *testing.T, s *server.MCPServer, id int, method string, params any) map[string]any {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp := s.HandleMessage(context.Background(), msg)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Result map[string]any `json:"result"`
		Error  any            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Nil(t, decoded.Error, "%s failed: %s", method, raw)
	return decoded.Result
}

func initialize(t *testing.T, s *server.MCPServer) map[string]any {
	t.Helper()
	return call(t, s, 1, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "0"},
	})
}

func TestNew_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = ""
	_, err := New(cfg, discardLogger())
	assert.Error(t, err)
}

func TestNew_RegistersTools(t *testing.T) {
	srv, err := New(testConfig(), discardLogger())
	require.NoError(t, err)

	info := initialize(t, srv.MCP)
	serverInfo, ok := info["serverInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "spacebridge-mcp", serverInfo["name"])

	result := call(t, srv.MCP, 2, "tools/list", map[string]any{})
	list, ok := result["tools"].([]any)
	require.True(t, ok)

	var names []string
	for _, tool := range list {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{"search_issues", "get_issue", "create_issue", "update_issue"}, names)
}

func TestNew_RegistersPromptAndResourceTemplate(t *testing.T) {
	srv, err := New(testConfig(), discardLogger())
	require.NoError(t, err)
	initialize(t, srv.MCP)

	prompts := call(t, srv.MCP, 2, "prompts/list", map[string]any{})
	list, ok := prompts["prompts"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "file-issue", list[0].(map[string]any)["name"])

	templates := call(t, srv.MCP, 3, "resources/templates/list", map[string]any{})
	tl, ok := templates["resourceTemplates"].([]any)
	require.True(t, ok)
	require.Len(t, tl, 1)
	assert.Equal(t, "spacebridge://api/v1/issues/{issue_id}", tl[0].(map[string]any)["uriTemplate"])
}

func TestNew_DetectorSelection(t *testing.T) {
	srv, err := New(testConfig(), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "threshold", srv.Detector.Name(), "no LLM key")

	cfg := testConfig()
	cfg.AnthropicAPIKey = "sk-test"
	srv, err = New(cfg, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "llm", srv.Detector.Name())

	cfg.DuplicateStrategy = duplicates.StrategyNone
	srv, err = New(cfg, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "none", srv.Detector.Name())
}

func TestNew_TrackerBaseURL(t *testing.T) {
	srv, err := New(testConfig(), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:1/api/v1", srv.Tracker.BaseURL())
}

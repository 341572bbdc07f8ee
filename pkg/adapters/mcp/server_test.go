package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/internal/testutils"
	"github.com/aretw0/formguard/pkg/catalog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(testutils.NewEngine(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListEntities(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.handleListEntities(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, catalog.Default().Names(), resp.Entities)
}

func TestDescribeEntity(t *testing.T) {
	s := newTestServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Name = "describe_entity"
	req.Params.Arguments = map[string]any{"entity": catalog.ChargeRule}

	res, err := s.handleDescribeEntity(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text := res.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, `"ruleType"`)

	req.Params.Arguments = map[string]any{"entity": "nope"}
	res, err = s.handleDescribeEntity(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestValidate(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleValidate(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"entity":  catalog.AuthChangePassword,
		"payload": `{"currentPassword":"old-secret1","newPassword":"abc12345","confirmPassword":"xyz99999"}`,
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Passwords don't match!", resp.Errors[0].Message)

	resp, err = s.handleValidate(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"entity":  catalog.AuthLogin,
		"payload": `{"username":"alice","password":"pw","x":1}`,
		"strict":  true,
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, "x", resp.Errors[0].Path)

	_, err = s.handleValidate(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"entity":  catalog.AuthLogin,
		"payload": `{`,
	})
	assert.Error(t, err)

	_, err = s.handleValidate(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"entity":  "nope",
		"payload": `{}`,
	})
	assert.ErrorIs(t, err, formguard.ErrUnknownEntity)
}

func TestValidate_RejectsTrailingData(t *testing.T) {
	s := newTestServer(t)

	for _, raw := range []string{
		`{"username":"alice","password":"pw"} junk`,
		`{"username":"alice","password":"pw"}{"username":"bob"}`,
	} {
		_, err := s.handleValidate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
			"entity":  catalog.AuthLogin,
			"payload": raw,
		})
		assert.ErrorContains(t, err, "single JSON value", raw)
	}

	resp, err := s.handleValidate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"entity":  catalog.AuthLogin,
		"payload": "{\"username\":\"alice\",\"password\":\"pw\"}\n",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
}

func TestSchemasResource(t *testing.T) {
	s := newTestServer(t)

	data, err := s.schemasJSON()
	require.NoError(t, err)

	var all map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &all))
	assert.Len(t, all, catalog.Default().Len())
	assert.Equal(t, "object", all[catalog.USSDMenu]["kind"])
}

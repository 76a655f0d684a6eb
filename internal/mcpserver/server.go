// File path: internal/mcpserver/server.go
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/kb"
	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
	"github.com/nicodishanthj/Katral_insight/internal/pipeline"
)

const (
	Name    = "katral-insight"
	Version = "1.0.0"
)

// Processor answers one question within a conversation.
type Processor interface {
	Process(ctx context.Context, question, conversationID string) (pipeline.Result, error)
}

// QueryRunner executes caller supplied read-only SQL.
type QueryRunner interface {
	Execute(ctx context.Context, query string) ([]model.Row, error)
}

const askSchema = `{
  "type": "object",
  "properties": {
    "question": {"type": "string", "description": "Business question about sales, orders, invoices or expenses"},
    "conversation_id": {"type": "string", "description": "Conversation to continue; omit to start a new one"}
  },
  "required": ["question"]
}`

const runSQLSchema = `{
  "type": "object",
  "properties": {
    "sql": {"type": "string", "description": "A single SELECT statement against the sales warehouse"}
  },
  "required": ["sql"]
}`

const listMetricsSchema = `{"type": "object", "properties": {}}`

type tools struct {
	pipeline  Processor
	queries   QueryRunner
	knowledge *kb.Base
}

// New builds the MCP server exposing the ask, run-sql and list-metrics
// tools.
func New(p Processor, queries QueryRunner, knowledge *kb.Base) (*server.MCPServer, error) {
	if p == nil {
		return nil, errors.New("mcpserver: pipeline required")
	}
	if queries == nil {
		return nil, errors.New("mcpserver: query runner required")
	}
	t := &tools{pipeline: p, queries: queries, knowledge: knowledge}
	srv := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("Answers natural-language questions about the sales warehouse by generating and running read-only SQL"),
	)
	srv.AddTool(
		mcp.NewToolWithRawSchema("ask", "Answer a business question with generated SQL, the result table and a written summary", json.RawMessage(askSchema)),
		t.handleAsk,
	)
	srv.AddTool(
		mcp.NewToolWithRawSchema("run-sql", "Run a read-only SELECT statement and return the rows as JSON", json.RawMessage(runSQLSchema)),
		t.handleRunSQL,
	)
	srv.AddTool(
		mcp.NewToolWithRawSchema("list-metrics", "List the business metrics the knowledge base defines", json.RawMessage(listMetricsSchema)),
		t.handleListMetrics,
	)
	common.Logger().Info("mcpserver: tools registered", "tools", 3)
	return srv, nil
}

// ServeStdio blocks serving the protocol on stdin and stdout.
func ServeStdio(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}

func (t *tools) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := strings.TrimSpace(req.GetString("question", ""))
	if question == "" {
		return mcp.NewToolResultError("question is required"), nil
	}
	result, err := t.pipeline.Process(ctx, question, strings.TrimSpace(req.GetString("conversation_id", "")))
	if err != nil {
		common.Logger().Error("mcpserver: ask failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("error processing query: %v", err)), nil
	}
	return jsonResult(result)
}

func (t *tools) handleRunSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("sql", ""))
	if query == "" {
		return mcp.NewToolResultError("sql is required"), nil
	}
	rows, err := t.queries.Execute(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{"results": rows, "count": len(rows)})
}

func (t *tools) handleListMetrics(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{"metrics": t.knowledge.Summaries(kb.CategoryMetrics, "metric_name")})
}

func jsonResult(payload interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/querylens/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the QueryLens MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"QueryLens Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	s.AddTool(mcp.NewTool("analyze_batch",
		mcp.WithDescription("Detect anti-patterns, performance problems and anomalies in a batch of warehouse query history."),
		mcp.WithString("path", mcp.Description("Path to the query history file (.json, .csv or .parquet)."), mcp.Required()),
		mcp.WithString("credits_path", mcp.Description("Path to the warehouse metering file.")),
		mcp.WithString("warehouse", mcp.Description("Only return findings attached to this warehouse.")),
		mcp.WithString("min_severity", mcp.Description("Lowest severity to return."), mcp.Enum("critical", "high", "medium", "low")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of findings returned (0 = all).")),
	), h.handleAnalyzeBatch)

	s.AddTool(mcp.NewTool("get_trends",
		mcp.WithDescription("Summarize hourly activity, slowest queries, query types, top users and warehouse credits of a batch."),
		mcp.WithString("path", mcp.Description("Path to the query history file."), mcp.Required()),
		mcp.WithString("credits_path", mcp.Description("Path to the warehouse metering file.")),
		mcp.WithNumber("top", mcp.Description("Number of entries in each leaderboard.")),
	), h.handleGetTrends)

	s.AddTool(mcp.NewTool("list_rules",
		mcp.WithDescription("List every detection rule with its category, severity and recommended action."),
	), h.handleListRules)

	return s
}

// StartMCPServer serves the MCP tools over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}

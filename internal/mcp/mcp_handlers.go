package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/querylens/core"
	"github.com/huangsam/querylens/core/detect"
	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// analyzeResult is the analyze_batch payload.
type analyzeResult struct {
	Findings []schema.EnrichedFinding `json:"findings"`
	Summary  schema.Summary           `json:"summary"`
	Overview schema.Overview          `json:"overview"`
}

func (h *toolHandler) handleAnalyzeBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.QueriesFile = request.GetString("path", "")
	if cfg.QueriesFile == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	if c := request.GetString("credits_path", ""); c != "" {
		cfg.CreditsFile = c
	}
	minSeverity, err := contract.ParseSeverity(request.GetString("min_severity", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", 0)
	if limit < 0 || limit > contract.MaxResultLimit {
		return mcp.NewToolResultError(fmt.Sprintf("limit must be between 0 and %d (received %d)", contract.MaxResultLimit, limit)), nil
	}
	warehouse := request.GetString("warehouse", "")

	report, err := core.RunAnalysis(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	findings := schema.FilterFindings(report.Findings, minSeverity, warehouse, limit)
	return jsonResult(analyzeResult{
		Findings: schema.EnrichFindings(findings),
		Summary:  report.Summary,
		Overview: report.Overview,
	})
}

func (h *toolHandler) handleGetTrends(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.QueriesFile = request.GetString("path", "")
	if cfg.QueriesFile == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	if c := request.GetString("credits_path", ""); c != "" {
		cfg.CreditsFile = c
	}
	if top := request.GetInt("top", 0); top != 0 {
		if top < 0 || top > contract.MaxTopN {
			return mcp.NewToolResultError(fmt.Sprintf("top must be greater than 0 and cannot exceed %d (received %d)", contract.MaxTopN, top)), nil
		}
		cfg.TopN = top
	}
	if cfg.TopN <= 0 {
		cfg.TopN = contract.DefaultTopN
	}

	result, err := core.RunTrends(core.WithSuppressHeader(ctx), cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trends failed: %v", err)), nil
	}
	return jsonResult(result)
}

func (h *toolHandler) handleListRules(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(detect.Rules())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

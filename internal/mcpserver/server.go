// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the matching workbench tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bibkit/bibmatch/internal/matchsvc"
	"github.com/bibkit/bibmatch/internal/score"
	"github.com/bibkit/bibmatch/internal/store"
)

// Server wraps the MCP server with workbench tools.
type Server struct {
	mcp *server.MCPServer
	svc *matchsvc.Service
	st  store.Store
}

// New creates a new MCP server with all workbench tools registered.
func New(svc *matchsvc.Service, st store.Store) *Server {
	s := &Server{svc: svc, st: st}

	s.mcp = server.NewMCPServer(
		"Bibmatch",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List the institution collections known to the workbench."),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List records of a collection with their decision state. "+
			"Filter selects a bucket: all, possible, nomatch, match, duplicatematch."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("filter", mcp.Description("Decision bucket (default all)")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("compare_record",
		mcp.WithDescription("Compare one record against its union catalog candidates. "+
			"Returns the score vector and aggregate similarity per candidate, sorted "+
			"best-first. Read the workflow first via the get_decision_workflow tool "+
			"or the bibmatch://decision-workflow resource."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("rec_id", mcp.Required(), mcp.Description("Record identifier")),
		mcp.WithString("method", mcp.Description("Aggregation method: mean (default) or identifiers")),
	), s.compareRecord)

	s.mcp.AddTool(mcp.NewTool("decide_match",
		mcp.WithDescription("Record an operator decision for a record. The matched record "+
			"must be one of the record's proposed candidates; an empty string cancels "+
			"a previous decision."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("rec_id", mcp.Required(), mcp.Description("Record identifier")),
		mcp.WithString("matched_record", mcp.Description("Chosen candidate id (empty to cancel)")),
	), s.decideMatch)

	s.mcp.AddTool(mcp.NewTool("reclassify_collection",
		mcp.WithDescription("Re-derive match and duplicate_match states for a whole "+
			"collection and return the decision-state counts."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
	), s.reclassifyCollection)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Search records of a collection by title."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("get_decision_workflow",
		mcp.WithDescription("Returns the canonical decision workflow. Call this before "+
			"recording decisions to understand the states and rules."),
	), s.getDecisionWorkflow)

	// Resource: decision workflow contract.
	s.mcp.AddResource(
		mcp.NewResource("bibmatch://decision-workflow", "Decision Workflow",
			mcp.WithResourceDescription("Canonical matching workflow and decision states."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readWorkflowResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listCollections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cols, err := s.st.ListCollections()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(cols) == 0 {
		return mcp.NewToolResultText("no collections"), nil
	}
	return mcp.NewToolResultText(strings.Join(cols, "\n")), nil
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filter := ""
	if f, err := req.RequireString("filter"); err == nil {
		filter = f
	}

	summaries, total, err := s.st.ListRecords(collection, filter, 0, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"records": summaries,
		"total":   total,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) compareRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recID, err := req.RequireString("rec_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	method := ""
	if m, err := req.RequireString("method"); err == nil {
		method = m
	}
	if method != "" && !score.KnownMethod(method) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown aggregation method: %s", method)), nil
	}

	payload, err := s.svc.Compare(ctx, collection, recID, method)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) decideMatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recID, err := req.RequireString("rec_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matched := ""
	if m, err := req.RequireString("matched_record"); err == nil {
		matched = m
	}

	if err := s.svc.Decide(ctx, collection, recID, matched); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if matched == "" {
		return mcp.NewToolResultText(fmt.Sprintf("decision cancelled: %s", recID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("decision recorded: %s -> %s", recID, matched)), nil
}

func (s *Server) reclassifyCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	counts, err := s.svc.Reclassify(ctx, collection)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(counts, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.st.SearchRecords(collection, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDecisionWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DecisionWorkflowContract), nil
}

func (s *Server) readWorkflowResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "bibmatch://decision-workflow",
			MIMEType: "text/markdown",
			Text:     DecisionWorkflowContract,
		},
	}, nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const recentRunsURI = "odin://runs/recent"

// NewMCPServer creates an MCP server exposing the translator, search and
// graph statistics as tools and the recent import runs as a resource.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"odin",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("odin turns notes into a knowledge graph and answers questions about them."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("translate_note",
			mcp.WithDescription("Generate Cypher statements that add a note to the knowledge graph."),
			mcp.WithString("text", mcp.Description("Note text"), mcp.Required()),
			mcp.WithString("file_path", mcp.Description("Path of the note"), mcp.Required()),
			mcp.WithString("root_path", mcp.Description("Vault root the note belongs to")),
			mcp.WithString("mode", mcp.Description("create (empty graph) or update (default create)"), mcp.Enum("create", "update")),
		),
		mcpTranslate(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_questions",
			mcp.WithDescription("Generate study questions about a piece of text."),
			mcp.WithString("text", mcp.Description("Source text"), mcp.Required()),
		),
		mcpAuxiliary("text", deps.Translator.GenerateQuestions),
	)
	s.AddTool(
		mcp.NewTool("explain_code",
			mcp.WithDescription("Explain what a code snippet does."),
			mcp.WithString("code", mcp.Description("Code snippet"), mcp.Required()),
		),
		mcpAuxiliary("code", deps.Translator.ExplainCode),
	)
	s.AddTool(
		mcp.NewTool("optimize_code",
			mcp.WithDescription("Rewrite a code snippet in a cleaner style."),
			mcp.WithString("code", mcp.Description("Code snippet"), mcp.Required()),
		),
		mcpAuxiliary("code", deps.Translator.OptimizeCodeStyle),
	)
	s.AddTool(
		mcp.NewTool("debug_code",
			mcp.WithDescription("Find and fix bugs in a code snippet."),
			mcp.WithString("code", mcp.Description("Code snippet"), mcp.Required()),
		),
		mcpAuxiliary("code", deps.Translator.DebugCode),
	)

	if deps.Search != nil {
		s.AddTool(
			mcp.NewTool("search_notes",
				mcp.WithDescription("Semantically search imported notes and return the most relevant fragments."),
				mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
				mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
			),
			mcpSearch(deps),
		)
	}

	if deps.Graph != nil {
		s.AddTool(
			mcp.NewTool("graph_stats",
				mcp.WithDescription("Report node, label, relationship and file counts of the knowledge graph."),
			),
			mcpGraphStats(deps),
		)
	}

	if deps.Runs != nil {
		s.AddResource(
			mcp.NewResource(
				recentRunsURI,
				"Recent Imports",
				mcp.WithResourceDescription("Last 10 vault import runs as JSON"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecentRuns(deps),
		)
	}

	return s
}

func mcpTranslate(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		filePath, err := req.RequireString("file_path")
		if err != nil {
			return mcpError("file_path is required"), nil
		}
		root := req.GetString("root_path", "")

		var out string
		switch mode := req.GetString("mode", "create"); mode {
		case "create":
			out, err = deps.Translator.SynthesizeCreate(ctx, text, root, filePath)
		case "update":
			data := ""
			if deps.Graph != nil {
				data, err = deps.Graph.ExportForRoot(ctx, root)
				if err != nil {
					return mcpError(fmt.Sprintf("exporting graph failed: %v", err)), nil
				}
			}
			out, err = deps.Translator.SynthesizeUpdate(ctx, data, text, root, filePath)
		default:
			return mcpError(fmt.Sprintf("unknown mode %q", mode)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("translation failed: %v", err)), nil
		}
		return mcpText(out), nil
	}
}

func mcpAuxiliary(field string, call func(context.Context, string) (string, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := req.RequireString(field)
		if err != nil || input == "" {
			return mcpError(field + " is required"), nil
		}
		out, err := call(ctx, input)
		if err != nil {
			return mcpError(fmt.Sprintf("model call failed: %v", err)), nil
		}
		return mcpText(out), nil
	}
}

func mcpSearch(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", defaultSearchLimit)
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}

		matches, err := deps.Search.Search(ctx, query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(matches) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(toMatchDTOs(matches))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGraphStats(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := deps.Graph.Stats(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("reading graph stats failed: %v", err)), nil
		}
		b, err := json.Marshal(toStatsResponse(st))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecentRuns(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		runs, err := deps.Runs.ListImportRuns(ctx, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		out := make([]RunDTO, len(runs))
		for i, run := range runs {
			out[i] = toRunDTO(run)
			out[i].Errors = nil
		}
		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal runs: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

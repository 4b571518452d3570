package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duynguyendang/kpextract/pkg/extract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

const toolExtract = "extract_knowledge"

// MCPServer exposes the extractor as an MCP tool.
type MCPServer struct {
	extractor extract.Extractor
	timeout   time.Duration
}

// NewMCPServer builds the MCP server with its tools registered.
func NewMCPServer(extractor extract.Extractor, timeout time.Duration, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"kpextract",
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	ms := &MCPServer{extractor: extractor, timeout: timeout}
	s.AddTool(
		mcp.NewTool(
			toolExtract,
			mcp.WithDescription("Extract knowledge points from course documents (txt, md, html, docx). Windows-style paths are accepted."),
			mcp.WithArray("file_path",
				mcp.Required(),
				mcp.Description("Paths of the documents to read, processed as one batch"),
				mcp.Items(map[string]any{"type": "string"}),
			),
		),
		ms.handleExtract,
	)
	return s
}

// Run serves the MCP protocol on stdio.
func Run(extractor extract.Extractor, timeout time.Duration, version string) error {
	return server.ServeStdio(NewMCPServer(extractor, timeout, version))
}

func (ms *MCPServer) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	raw, ok := args["file_path"].([]any)
	if !ok {
		return mcp.NewToolResultError("file_path argument must be an array of strings"), nil
	}
	paths := make([]string, 0, len(raw))
	for _, item := range raw {
		p, ok := item.(string)
		if !ok {
			return mcp.NewToolResultError("file_path argument must be an array of strings"), nil
		}
		paths = append(paths, p)
	}
	paths = extract.NormalizePaths(paths)

	if ms.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ms.timeout)
		defer cancel()
	}

	result, err := ms.extractor.ProcessDocuments(ctx, paths)
	if err != nil {
		log.Warn().Err(err).Strs("paths", paths).Msg("mcp extraction failed")
		return mcp.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
	}

	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

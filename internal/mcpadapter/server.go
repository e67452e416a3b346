package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ravendocs/raven-agent/internal/dispatch"
)

// Server exposes the adapter over the MCP wire protocol. A stdio server
// serves exactly one user, fixed at construction.
type Server struct {
	server *sdkmcp.Server
	logger *slog.Logger
}

func NewServer(adapter *Adapter, user dispatch.User, logger *slog.Logger) *Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: serverName, Version: CatalogVersion}, nil)

	for _, spec := range adapter.ListTools() {
		spec := spec
		server.AddTool(&sdkmcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			args := map[string]any{}
			if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
				if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
					return nil, fmt.Errorf("decode arguments for %s: %w", spec.Name, err)
				}
			}
			result := adapter.CallTool(ctx, user, spec.Name, args)
			return &sdkmcp.CallToolResult{
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: result.Text}},
				IsError: result.IsError,
			}, nil
		})
	}

	for _, resource := range adapter.ListResources() {
		resource := resource
		server.AddResource(&sdkmcp.Resource{
			Name:        resource.Name,
			URI:         resource.URI,
			Description: resource.Description,
			MIMEType:    resource.MIMEType,
		}, func(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := resource.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			text, err := adapter.ReadResource(ctx, user, uri)
			if err != nil {
				return nil, err
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{URI: uri, MIMEType: resource.MIMEType, Text: text}},
			}, nil
		})
	}

	for _, prompt := range adapter.ListPrompts() {
		prompt := prompt
		arguments := make([]*sdkmcp.PromptArgument, 0, len(prompt.Arguments))
		for _, argument := range prompt.Arguments {
			arguments = append(arguments, &sdkmcp.PromptArgument{
				Name:        argument.Name,
				Description: argument.Description,
				Required:    argument.Required,
			})
		}
		server.AddPrompt(&sdkmcp.Prompt{
			Name:        prompt.Name,
			Description: prompt.Description,
			Arguments:   arguments,
		}, func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
			args := map[string]string{}
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			text, err := adapter.GetPrompt(prompt.Name, args)
			if err != nil {
				return nil, err
			}
			return &sdkmcp.GetPromptResult{
				Description: prompt.Description,
				Messages:    []*sdkmcp.PromptMessage{{Role: "user", Content: &sdkmcp.TextContent{Text: text}}},
			}, nil
		})
	}

	return &Server{server: server, logger: logger.With("component", "mcpserver")}
}

// Run serves the session over stdio until the context ends.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio")
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}

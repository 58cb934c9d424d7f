// Package server provides the MCP server that exposes tools,
// resources and prompts over streamable HTTP.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/xlog"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "mcp/server")

const (
	// DefaultAddr is the default listen address
	DefaultAddr = "127.0.0.1:8081"
	// DefaultPath is the default HTTP path of the endpoint
	DefaultPath = "/mcp"
	// ServerName is reported to clients on initialize
	ServerName = "MCP Server with RAG"
	// ServerVersion is reported to clients on initialize
	ServerVersion = "v1.0.0"

	// EchoPromptName is the name of the echo prompt
	EchoPromptName = "echo_prompt"

	greetingScheme = "greeting://"
	echoScheme     = "echo://"
)

// Server is MCP server
type Server struct {
	mcp   *sdk.Server
	tools []tools.ITool
}

// New returns Server with the tools, greeting and echo resources,
// and the echo prompt.
func New(list ...tools.ITool) *Server {
	s := &Server{
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
	}

	for _, t := range list {
		s.AddTool(t)
	}

	s.mcp.AddResourceTemplate(&sdk.ResourceTemplate{
		Name:        "greeting",
		Description: "Get a personalized greeting",
		URITemplate: greetingScheme + "{name}",
		MIMEType:    "text/plain",
	}, textResource(greetingScheme, func(name string) string {
		return fmt.Sprintf("Hello, %s!", name)
	}))

	// reserved expansion allows sub-delims in the message
	s.mcp.AddResourceTemplate(&sdk.ResourceTemplate{
		Name:        "echo",
		Description: "Echo a message as a resource",
		URITemplate: echoScheme + "{+message}",
		MIMEType:    "text/plain",
	}, textResource(echoScheme, func(message string) string {
		return "Resource echo: " + message
	}))

	s.mcp.AddPrompt(&sdk.Prompt{
		Name:        EchoPromptName,
		Description: "Create an echo prompt",
		Arguments: []*sdk.PromptArgument{
			{Name: "message", Description: "The message to process", Required: true},
		},
	}, echoPrompt)

	return s
}

// AddTool registers the tool
func (s *Server) AddTool(t tools.ITool) {
	s.tools = append(s.tools, t)
	s.mcp.AddTool(&sdk.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.Parameters(),
	}, toolHandler(t))
}

// Tools returns the registered tools
func (s *Server) Tools() []tools.ITool {
	return s.tools
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *sdk.Server {
	return s.mcp
}

// Handler returns streamable HTTP handler served on the path,
// DefaultPath is used if empty.
func (s *Server) Handler(path string) http.Handler {
	if path == "" {
		path = DefaultPath
	}
	h := sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server {
		return s.mcp
	}, nil)

	mux := http.NewServeMux()
	mux.Handle(path, h)
	return mux
}

// ListenAndServe serves streamable HTTP on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr, path string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	return s.Serve(ctx, ln, path)
}

// Serve serves streamable HTTP on the listener until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener, path string) error {
	httpServer := &http.Server{
		Handler:           s.Handler(path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.KV(xlog.INFO, "status", "serving", "addr", ln.Addr().String(), "path", path, "tools", len(s.tools))
	err := httpServer.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.WithStack(err)
	}
	return nil
}

func toolHandler(t tools.ITool) sdk.ToolHandler {
	return func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		name := t.Name()
		var args string
		if req.Params != nil {
			args = string(req.Params.Arguments)
		}

		out, err := t.Call(ctx, args)
		if err != nil {
			metricskey.StatsServerToolCalls.IncrCounter(1, name, "failed")
			logger.ContextKV(ctx, xlog.ERROR, "tool", name, "err", err.Error())
			return &sdk.CallToolResult{
				IsError: true,
				Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
			}, nil
		}

		metricskey.StatsServerToolCalls.IncrCounter(1, name, "succeeded")
		logger.ContextKV(ctx, xlog.DEBUG, "tool", name, "result_size", len(out))
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: out}},
		}, nil
	}
}

func textResource(scheme string, render func(string) string) sdk.ResourceHandler {
	return func(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
		uri := req.Params.URI
		if !strings.HasPrefix(uri, scheme) {
			return nil, sdk.ResourceNotFoundError(uri)
		}
		arg, err := url.PathUnescape(strings.TrimPrefix(uri, scheme))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid resource URI: %s", uri)
		}
		return &sdk.ReadResourceResult{
			Contents: []*sdk.ResourceContents{
				{URI: uri, MIMEType: "text/plain", Text: render(arg)},
			},
		}, nil
	}
}

func echoPrompt(_ context.Context, req *sdk.GetPromptRequest) (*sdk.GetPromptResult, error) {
	var message string
	if req.Params != nil {
		message = req.Params.Arguments["message"]
	}
	return &sdk.GetPromptResult{
		Description: "Echo prompt",
		Messages: []*sdk.PromptMessage{
			{
				Role:    "user",
				Content: &sdk.TextContent{Text: "Please process this message: " + message},
			},
		},
	}, nil
}

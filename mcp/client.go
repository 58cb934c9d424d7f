// Package mcp provides the client of a remote tool service
// speaking the Model Context Protocol.
package mcp

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/catalog"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/xlog"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:generate mockgen -source=client.go -destination=../mocks/mockmcp/mcp_mock.gen.go -package mockmcp

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "mcp")

const (
	// DefaultServerURL is the default endpoint of the tool service
	DefaultServerURL = "http://127.0.0.1:8081/mcp"
	// ServerURLEnvVarName is the environment variable with the endpoint of the tool service
	ServerURLEnvVarName = "MCP_SERVER_URL"
	// ClientName is reported to the tool service on connect
	ClientName = "mcpchat"
	// ClientVersion is reported to the tool service on connect
	ClientVersion = "v1.0.0"
)

// ErrToolFailed is returned when the tool service reports a failed tool call.
var ErrToolFailed = errors.New("tool call failed")

// ToolResult is a single content element returned by a tool
type ToolResult struct {
	Type     string `json:"type" yaml:"type"`
	Text     string `json:"text,omitempty" yaml:"text,omitempty"`
	MIMEType string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
}

// ToolService is a session with the remote tool service
type ToolService interface {
	// ListTools returns the tools advertised by the service
	ListTools(ctx context.Context) ([]catalog.ToolDescriptor, error)
	// CallTool executes the tool and returns its content
	CallTool(ctx context.Context, name string, args map[string]any) ([]ToolResult, error)
	// ReadResource returns text contents of the resource
	ReadResource(ctx context.Context, uri string) ([]string, error)
	// GetPrompt returns the messages of the prompt
	GetPrompt(ctx context.Context, name string, args map[string]string) ([]llms.Message, error)
	// Ping checks the session is alive
	Ping(ctx context.Context) error
	// Close terminates the session
	Close() error
}

// Dialer connects to the tool service
type Dialer interface {
	Dial(ctx context.Context) (ToolService, error)
}

// TransportFactory returns a transport for a new session
type TransportFactory func(ctx context.Context) (sdk.Transport, error)

type dialer struct {
	target  string
	factory TransportFactory
}

// NewHTTPDialer returns Dialer to the streamable HTTP endpoint.
// If endpoint is empty, DefaultServerURL is used.
func NewHTTPDialer(endpoint string, client *http.Client) Dialer {
	if endpoint == "" {
		endpoint = DefaultServerURL
	}
	return &dialer{
		target: endpoint,
		factory: func(_ context.Context) (sdk.Transport, error) {
			return &sdk.StreamableClientTransport{
				Endpoint:   endpoint,
				HTTPClient: client,
				MaxRetries: -1,
			}, nil
		},
	}
}

// NewTransportDialer returns Dialer that connects over transports
// returned by the factory.
func NewTransportDialer(target string, factory TransportFactory) Dialer {
	return &dialer{
		target:  target,
		factory: factory,
	}
}

func (d *dialer) Dial(ctx context.Context) (ToolService, error) {
	transport, err := d.factory(ctx)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create transport to %s", d.target)
	}

	client := sdk.NewClient(&sdk.Implementation{Name: ClientName, Version: ClientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", d.target)
	}

	logger.ContextKV(ctx, xlog.DEBUG, "status", "connected", "target", d.target, "session", session.ID())
	return &clientSession{
		target:  d.target,
		session: session,
	}, nil
}

type clientSession struct {
	target  string
	session *sdk.ClientSession
}

func (c *clientSession) ListTools(ctx context.Context) ([]catalog.ToolDescriptor, error) {
	var res []catalog.ToolDescriptor
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, errors.Wrap(err, "failed to list tools")
		}
		td, err := FromTool(tool)
		if err != nil {
			return nil, err
		}
		res = append(res, td)
	}
	return res, nil
}

func (c *clientSession) CallTool(ctx context.Context, name string, args map[string]any) ([]ToolResult, error) {
	started := time.Now()
	if args == nil {
		args = map[string]any{}
	}
	result, err := c.session.CallTool(ctx, &sdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call tool %s", name)
	}

	res := ToToolResults(result.Content)
	logger.ContextKV(ctx, xlog.DEBUG,
		"tool", name,
		"is_error", result.IsError,
		"results", len(res),
		"elapsed", time.Since(started).String(),
	)

	if result.IsError {
		msg := "no details"
		if len(res) > 0 {
			msg = res[0].Text
		}
		return nil, errors.Wrapf(ErrToolFailed, "%s: %s", name, msg)
	}
	return res, nil
}

func (c *clientSession) ReadResource(ctx context.Context, uri string) ([]string, error) {
	result, err := c.session.ReadResource(ctx, &sdk.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read resource %s", uri)
	}
	var res []string
	for _, rc := range result.Contents {
		if rc != nil && rc.Text != "" {
			res = append(res, rc.Text)
		}
	}
	return res, nil
}

func (c *clientSession) GetPrompt(ctx context.Context, name string, args map[string]string) ([]llms.Message, error) {
	result, err := c.session.GetPrompt(ctx, &sdk.GetPromptParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get prompt %s", name)
	}

	var res []llms.Message
	for _, pm := range result.Messages {
		if pm == nil {
			continue
		}
		role, ok := llms.ParseRole(string(pm.Role))
		if !ok {
			role = llms.RoleUser
		}
		res = append(res, llms.Message{
			Role:    role,
			Content: contentText(pm.Content),
		})
	}
	return res, nil
}

func (c *clientSession) Ping(ctx context.Context) error {
	if err := c.session.Ping(ctx, nil); err != nil {
		return errors.Wrapf(err, "failed to ping %s", c.target)
	}
	return nil
}

func (c *clientSession) Close() error {
	err := c.session.Close()
	if err != nil && !isClosedErr(err) {
		return errors.WithStack(err)
	}
	return nil
}

// FromTool returns ToolDescriptor of the tool advertised by the service
func FromTool(tool *sdk.Tool) (catalog.ToolDescriptor, error) {
	if tool == nil {
		return catalog.ToolDescriptor{}, errors.New("tool is nil")
	}
	return catalog.NewDescriptor(tool.Name, tool.Description, tool.InputSchema)
}

// ToToolResults converts the tool content
func ToToolResults(content []sdk.Content) []ToolResult {
	res := make([]ToolResult, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *sdk.TextContent:
			res = append(res, ToolResult{Type: "text", Text: v.Text})
		case *sdk.EmbeddedResource:
			tr := ToolResult{Type: "resource"}
			if v.Resource != nil {
				tr.Text = v.Resource.Text
				tr.MIMEType = v.Resource.MIMEType
			}
			res = append(res, tr)
		case *sdk.ImageContent:
			res = append(res, ToolResult{Type: "image", MIMEType: v.MIMEType})
		case *sdk.AudioContent:
			res = append(res, ToolResult{Type: "audio", MIMEType: v.MIMEType})
		case *sdk.ResourceLink:
			res = append(res, ToolResult{Type: "resource_link", Text: v.URI, MIMEType: v.MIMEType})
		}
	}
	return res
}

func contentText(c sdk.Content) string {
	switch v := c.(type) {
	case *sdk.TextContent:
		return v.Text
	case *sdk.EmbeddedResource:
		if v.Resource != nil {
			return v.Resource.Text
		}
	}
	return ""
}

func isClosedErr(err error) bool {
	return errors.Is(err, sdk.ErrConnectionClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed)
}

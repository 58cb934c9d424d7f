// Command mcpchat is the tool-augmented chat assistant.
//
// It runs the MCP demo server, the interactive chat against the server,
// and the RAG ingestion and search over the vector store.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llmfactory"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "cmd")

const (
	// DefaultServerURL is the MCP endpoint used by the chat
	DefaultServerURL = mcp.DefaultServerURL
	// ServerURLEnvVarName is the environment variable with the MCP endpoint
	ServerURLEnvVarName = mcp.ServerURLEnvVarName
)

// ModelFactory creates the chat model
type ModelFactory func(c *Cli) (llms.Model, error)

// EmbedderFactory creates the embeddings model
type EmbedderFactory func(c *Cli) (llms.Embedder, error)

// Cli holds the flags and dependencies of the commands
type Cli struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	NewModel    ModelFactory
	NewEmbedder EmbedderFactory

	debug     bool
	envFile   string
	llmConfig string
	model     string
	serverURL string
}

// DefaultModelFactory creates the model from the LLM config file,
// or from the environment if the file is not specified.
func DefaultModelFactory(c *Cli) (llms.Model, error) {
	f, err := c.llmFactory()
	if err != nil {
		return nil, err
	}
	if c.model != "" {
		return f.ModelByName(c.model)
	}
	return f.DefaultModel()
}

// DefaultEmbedderFactory creates the embeddings model from the LLM config file,
// or from the environment if the file is not specified.
func DefaultEmbedderFactory(c *Cli) (llms.Embedder, error) {
	f, err := c.llmFactory()
	if err != nil {
		return nil, err
	}
	return f.Embedder()
}

func (c *Cli) llmFactory() (llmfactory.Factory, error) {
	if c.llmConfig != "" {
		return llmfactory.Load(c.llmConfig)
	}
	cfg := llmfactory.FromEnv()
	if len(cfg.Providers) == 0 {
		return nil, errors.New("no LLM provider configured: set AZURE_OPENAI_ENDPOINT, OPENAI_API_KEY or ANTHROPIC_API_KEY, or use --llm-config")
	}
	return llmfactory.New(cfg), nil
}

// Dialer returns the MCP dialer to the configured server
func (c *Cli) Dialer() mcp.Dialer {
	return mcp.NewHTTPDialer(c.ServerURL(), nil)
}

// ServerURL returns the MCP endpoint
func (c *Cli) ServerURL() string {
	return values.StringsCoalesce(c.serverURL, os.Getenv(ServerURLEnvVarName), DefaultServerURL)
}

func (c *Cli) init() error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !(os.IsNotExist(err) && c.envFile == ".env") {
			return errors.WithMessagef(err, "failed to load %s", c.envFile)
		}
	}

	xlog.SetFormatter(xlog.NewStringFormatter(c.Stderr))
	if c.debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.WARNING)
	}
	return nil
}

// NewRootCmd returns the root command with all sub-commands
func NewRootCmd(c *Cli) *cobra.Command {
	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.NewModel == nil {
		c.NewModel = DefaultModelFactory
	}
	if c.NewEmbedder == nil {
		c.NewEmbedder = DefaultEmbedderFactory
	}

	root := &cobra.Command{
		Use:           "mcpchat",
		Short:         "mcpchat - chat assistant with MCP tools and RAG",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return c.init()
		},
	}
	root.SetIn(c.Stdin)
	root.SetOut(c.Stdout)
	root.SetErr(c.Stderr)

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.debug, "debug", "D", false, "Enable debug logging")
	pf.StringVar(&c.envFile, "env", ".env", "Environment file to load")
	pf.StringVar(&c.llmConfig, "llm-config", "", "LLM providers configuration file")
	pf.StringVar(&c.model, "model", "", "Preferred model name")
	pf.StringVar(&c.serverURL, "server", "", "MCP server URL, "+ServerURLEnvVarName+" or "+DefaultServerURL+" if not set")

	root.AddCommand(
		newServeCmd(c),
		newChatCmd(c),
		newAskCmd(c),
		newProbeCmd(c),
		newIngestCmd(c),
		newQueryCmd(c),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := &Cli{}
	if err := NewRootCmd(c).ExecuteContext(ctx); err != nil {
		logger.KV(xlog.ERROR, "err", err.Error())
		_, _ = io.WriteString(c.Stderr, "Error: "+err.Error()+"\n")
		cancel()
		os.Exit(1)
	}
}

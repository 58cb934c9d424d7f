package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mcp/server"
	"github.com/effective-security/mcpchat/rag"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/mcpchat/tools/basic"
	"github.com/effective-security/mcpchat/tools/ragsearch"
	"github.com/effective-security/mcpchat/tools/rss"
	"github.com/effective-security/mcpchat/tools/tavily"
	"github.com/effective-security/mcpchat/tools/travel"
	"github.com/spf13/cobra"
)

// PGConnEnvVarName is the environment variable with the pgvector connection string
const PGConnEnvVarName = "PG_CONN_STR"

type serveFlags struct {
	addr       string
	path       string
	pgConn     string
	collection string
	ingest     string
	rows       int
	noRAG      bool
}

func newServeCmd(c *Cli) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server with tools, resources and prompts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.addr, "addr", server.DefaultAddr, "Listen address")
	fl.StringVar(&f.path, "path", server.DefaultPath, "HTTP path of the MCP endpoint")
	fl.StringVar(&f.pgConn, "pg", "", "pgvector connection string, "+PGConnEnvVarName+" if not set, in-memory store if empty")
	fl.StringVar(&f.collection, "collection", rag.DefaultCollection, "Vector store collection")
	fl.StringVar(&f.ingest, "ingest", "", "Excel file to ingest on start")
	fl.IntVar(&f.rows, "rows", rag.DefaultMaxRows, "Number of data rows to ingest, negative for all")
	fl.BoolVar(&f.noRAG, "no-rag", false, "Do not serve "+ragsearch.ToolName)
	return cmd
}

func (c *Cli) serve(ctx context.Context, f *serveFlags) error {
	list, err := serverTools(os.Getenv(tavily.APIKeyEnvVarName))
	if err != nil {
		return err
	}

	if !f.noRAG {
		retriever, err := c.newRetriever(ctx, f.pgConn, f.collection)
		if err != nil {
			return err
		}
		defer func() { _ = retriever.Close() }()

		if f.ingest != "" {
			count, err := ingestFile(ctx, retriever, f.ingest, f.rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Stdout, "Ingested %d chunks into %s\n", count, retriever.Collection())
		}
		list = append(list, ragsearch.New(retriever))
	}

	srv := server.New(list...)
	names := make([]string, 0, len(list))
	for _, t := range srv.Tools() {
		names = append(names, t.Name())
	}
	fmt.Fprintf(c.Stdout, "%s listening on http://%s%s\n", server.ServerName, f.addr, f.path)
	fmt.Fprintf(c.Stdout, "Tools: %s\n", strings.Join(names, ", "))

	return srv.ListenAndServe(ctx, f.addr, f.path)
}

// serverTools returns the tools served without the vector store,
// web search is served only with the API key.
func serverTools(tavilyKey string) ([]tools.ITool, error) {
	list := []tools.ITool{
		basic.NewAdd(),
		basic.NewEcho(),
		travel.New("", nil),
		rss.New("", nil),
	}
	if tavilyKey != "" {
		t, err := tavily.New(tavilyKey)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, nil
}

// newRetriever returns Retriever over pgvector if the connection string is configured,
// or over the in-memory store.
func (c *Cli) newRetriever(ctx context.Context, pgConn, collection string) (*rag.Retriever, error) {
	embedder, err := c.NewEmbedder(c)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create embeddings model")
	}

	var store rag.VectorStore
	if pgConn == "" {
		pgConn = os.Getenv(PGConnEnvVarName)
	}
	if pgConn != "" {
		pg, err := rag.NewPostgresStore(ctx, pgConn)
		if err != nil {
			return nil, err
		}
		store = pg
	} else {
		store = rag.NewMemoryStore()
	}
	return rag.NewRetriever(embedder, store, collection), nil
}

func ingestFile(ctx context.Context, retriever *rag.Retriever, file string, rows int) (int, error) {
	text, err := rag.LoadExcelFile(file, rag.ExcelOptions{MaxRows: rows})
	if err != nil {
		return 0, err
	}
	return retriever.Ingest(ctx, rag.Chunk(text, rag.DefaultChunkSize))
}

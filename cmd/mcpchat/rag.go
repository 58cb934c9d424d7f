package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/rag"
	"github.com/effective-security/mcpchat/tools/ragsearch"
	"github.com/spf13/cobra"
)

type ragFlags struct {
	pgConn     string
	collection string
	rows       int
	topK       int
}

func (f *ragFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.pgConn, "pg", "", "pgvector connection string, "+PGConnEnvVarName+" if not set")
	fl.StringVar(&f.collection, "collection", rag.DefaultCollection, "Vector store collection")
}

// connString returns the pgvector connection string,
// the in-memory store does not outlive a command.
func (f *ragFlags) connString() (string, error) {
	conn := f.pgConn
	if conn == "" {
		conn = os.Getenv(PGConnEnvVarName)
	}
	if conn == "" {
		return "", errors.Newf("pgvector connection string is required: use --pg or %s", PGConnEnvVarName)
	}
	return conn, nil
}

func newIngestCmd(c *Cli) *cobra.Command {
	f := &ragFlags{}
	cmd := &cobra.Command{
		Use:   "ingest <file.xlsx>",
		Short: "Ingest the first sheet of the Excel workbook into the vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ingest(cmd.Context(), f, args[0])
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&f.rows, "rows", rag.DefaultMaxRows, "Number of data rows to ingest, negative for all")
	return cmd
}

func newQueryCmd(c *Cli) *cobra.Command {
	f := &ragFlags{}
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.search(cmd.Context(), f, strings.Join(args, " "))
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&f.topK, "top-k", rag.DefaultTopK, "Number of results")
	return cmd
}

func (c *Cli) ingest(ctx context.Context, f *ragFlags, file string) error {
	conn, err := f.connString()
	if err != nil {
		return err
	}
	retriever, err := c.newRetriever(ctx, conn, f.collection)
	if err != nil {
		return err
	}
	defer func() { _ = retriever.Close() }()

	count, err := ingestFile(ctx, retriever, file, f.rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Stdout, "Ingested %d chunks into %s\n", count, retriever.Collection())
	return nil
}

func (c *Cli) search(ctx context.Context, f *ragFlags, query string) error {
	conn, err := f.connString()
	if err != nil {
		return err
	}
	retriever, err := c.newRetriever(ctx, conn, f.collection)
	if err != nil {
		return err
	}
	defer func() { _ = retriever.Close() }()

	res, err := retriever.Search(ctx, query, f.topK)
	if err != nil {
		return err
	}
	return printYAML(c.Stdout, ragsearch.NewResponse(res))
}

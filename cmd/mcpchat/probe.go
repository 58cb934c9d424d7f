package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/tools"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type probeFlags struct {
	resource   string
	prompt     string
	promptArgs []string
	tool       string
	toolArgs   string
}

func newProbeCmd(c *Cli) *cobra.Command {
	f := &probeFlags{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check the MCP server: ping, list tools, read resource, get prompt, call tool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.probe(cmd.Context(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.resource, "resource", "", "Resource URI to read, e.g. greeting://Alice")
	fl.StringVar(&f.prompt, "prompt", "", "Prompt name to get, e.g. echo_prompt")
	fl.StringSliceVar(&f.promptArgs, "arg", nil, "Prompt argument as key=value")
	fl.StringVar(&f.tool, "tool", "", "Tool name to call")
	fl.StringVar(&f.toolArgs, "input", "", "Tool arguments as JSON object")
	return cmd
}

func (c *Cli) probe(ctx context.Context, f *probeFlags) error {
	sess, err := c.Dialer().Dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	if err = sess.Ping(ctx); err != nil {
		return errors.WithMessage(err, "ping failed")
	}
	fmt.Fprintf(c.Stdout, "Connected to %s\n", c.ServerURL())

	list, err := sess.ListTools(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Stdout, "Tools: %d\n", len(list))
	if err = printYAML(c.Stdout, list); err != nil {
		return err
	}

	if f.resource != "" {
		contents, err := sess.ReadResource(ctx, f.resource)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Stdout, "Resource %s:\n", f.resource)
		for _, text := range contents {
			fmt.Fprintln(c.Stdout, text)
		}
	}

	if f.prompt != "" {
		args := make(map[string]string, len(f.promptArgs))
		for _, kv := range f.promptArgs {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return errors.Newf("invalid prompt argument: %s", kv)
			}
			args[k] = v
		}
		msgs, err := sess.GetPrompt(ctx, f.prompt, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Stdout, "Prompt %s:\n", f.prompt)
		if err = printYAML(c.Stdout, msgs); err != nil {
			return err
		}
	}

	if f.tool != "" {
		var args map[string]any
		if err = tools.DecodeInput([]byte(f.toolArgs), &args); err != nil {
			return errors.WithMessagef(err, "invalid arguments for tool %s", f.tool)
		}
		results, err := sess.CallTool(ctx, f.tool, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Stdout, "Tool %s:\n", f.tool)
		for _, r := range results {
			fmt.Fprintln(c.Stdout, r.Text)
		}
	}
	return nil
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode")
	}
	return enc.Close()
}

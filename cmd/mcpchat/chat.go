package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/assistants"
	"github.com/effective-security/mcpchat/callbacks"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/store"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// RedisURLEnvVarName is the environment variable with the Redis URL for chat history
const RedisURLEnvVarName = "REDIS_URL"

type chatFlags struct {
	chatID     string
	redisURL   string
	prefix     string
	multiCall  bool
	maxHistory int
	maxIter    int
	verbose    bool
	stats      bool
}

func (f *chatFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.chatID, "chat-id", "", "Chat ID to load and save the history, a new one if empty")
	fl.StringVar(&f.redisURL, "redis", "", "Redis URL for the chat history, "+RedisURLEnvVarName+" if not set, in-memory if empty")
	fl.StringVar(&f.prefix, "redis-prefix", "mcpchat", "Redis key prefix")
	fl.BoolVar(&f.multiCall, "multi-call", false, "Execute every tool call of a model turn")
	fl.IntVar(&f.maxHistory, "history", chatmodel.DefaultMaxHistory, "Number of messages retained in the conversation")
	fl.IntVar(&f.maxIter, "max-iterations", assistants.DefaultMaxIterations, "Number of model calls allowed per query")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "Print model and tool events")
	fl.BoolVar(&f.stats, "stats", false, "Print run stats after each query")
}

func newChatCmd(c *Cli) *cobra.Command {
	f := &chatFlags{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with the assistant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.chat(cmd.Context(), f)
		},
	}
	f.register(cmd)
	return cmd
}

func newAskCmd(c *Cli) *cobra.Command {
	f := &chatFlags{}
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask the assistant a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ask(cmd.Context(), f, strings.Join(args, " "))
		},
	}
	f.register(cmd)
	return cmd
}

// session is the chat of the assistant with persisted history
type session struct {
	assistant  *assistants.Assistant
	store      store.MessageStore
	scratchpad *callbacks.Scratchpad
	conv       *chatmodel.Conversation
	chatCtx    chatmodel.ChatContext
}

func (c *Cli) newSession(ctx context.Context, f *chatFlags) (*session, error) {
	model, err := c.NewModel(c)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create model")
	}

	ms, err := newMessageStore(f)
	if err != nil {
		return nil, err
	}

	fanout := callbacks.NewFanout(callbacks.NewPackageLogger(logger))
	if f.verbose {
		fanout.Add(callbacks.NewPrinter(c.Stderr, callbacks.ModeVerbose))
	}
	s := &session{
		store:   ms,
		chatCtx: chatmodel.NewChatContext(f.chatID),
	}
	if f.stats {
		s.scratchpad = callbacks.NewScratchpad(callbacks.ModeDefault)
		fanout.Add(s.scratchpad)
	}

	policy := assistants.SingleCall
	if f.multiCall {
		policy = assistants.MultiCall
	}
	s.assistant = assistants.New(model, c.Dialer(),
		assistants.WithMaxHistory(f.maxHistory),
		assistants.WithMaxIterations(f.maxIter),
		assistants.WithToolCallPolicy(policy),
		assistants.WithCallback(fanout),
	)

	msgs, err := ms.Messages(ctx, s.chatCtx.GetChatID())
	if err != nil {
		return nil, err
	}
	s.conv = chatmodel.NewConversation(f.maxHistory, msgs...)
	return s, nil
}

func newMessageStore(f *chatFlags) (store.MessageStore, error) {
	redisURL := f.redisURL
	if redisURL == "" {
		redisURL = os.Getenv(RedisURLEnvVarName)
	}
	if redisURL == "" {
		return store.NewMemoryStore(store.DefaultWindow), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Redis URL")
	}
	return store.NewRedisStore(redis.NewClient(opts), f.prefix, store.DefaultWindow), nil
}

// query runs the query and saves the conversation on success
func (c *Cli) query(ctx context.Context, s *session, query string) (string, error) {
	s.chatCtx.NewRun()
	ctx = chatmodel.WithChatContext(ctx, s.chatCtx)
	if s.scratchpad != nil {
		s.scratchpad.StartRun(ctx)
		defer func() {
			if stats, _ := s.scratchpad.EndRun(ctx); stats != nil {
				fmt.Fprintf(c.Stderr, "[model calls: %d, tool calls: %d, tokens: %d, duration: %s]\n",
					stats.ModelCalls, stats.ToolsCalls, stats.LLMTotalTokens, stats.Duration)
			}
		}()
	}

	answer, err := s.assistant.Run(ctx, s.conv, query)
	if err != nil {
		return "", err
	}
	if err = s.store.Save(ctx, s.chatCtx.GetChatID(), s.conv.Messages()); err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "save_history", "err", err.Error())
	}
	return answer, nil
}

func (c *Cli) ask(ctx context.Context, f *chatFlags, query string) error {
	s, err := c.newSession(ctx, f)
	if err != nil {
		return err
	}
	answer, err := c.query(ctx, s, query)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Stdout, answer)
	return nil
}

func (c *Cli) chat(ctx context.Context, f *chatFlags) error {
	s, err := c.newSession(ctx, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.Stdout, "Chat %s with %s, tools at %s\n", s.chatCtx.GetChatID(), s.assistant.ProviderName(), c.ServerURL())
	if info, err := store.GetChatInfo(ctx, s.store, s.chatCtx.GetChatID()); err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "chat_info", "err", err.Error())
	} else if info != nil {
		fmt.Fprintf(c.Stdout, "Resumed %d messages\n", info.Count)
	}
	fmt.Fprintln(c.Stdout, "Type /reset to clear the history, /exit to quit.")

	scanner := bufio.NewScanner(c.Stdin)
	for {
		fmt.Fprint(c.Stdout, "\nYou: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit", "/quit", "exit", "quit":
			return nil
		case "/reset":
			s.conv.Reset()
			if err := s.store.Reset(ctx, s.chatCtx.GetChatID()); err != nil {
				fmt.Fprintf(c.Stdout, "Error: %s\n", err.Error())
				continue
			}
			fmt.Fprintln(c.Stdout, "History cleared.")
			continue
		}

		answer, err := c.query(ctx, s, input)
		if err != nil {
			fmt.Fprintf(c.Stdout, "Error: %s\n", err.Error())
			continue
		}
		fmt.Fprintf(c.Stdout, "Assistant: %s\n", answer)

		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

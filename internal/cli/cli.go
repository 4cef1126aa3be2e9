// Package cli implements the rawrfetch command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Keksclan/rawrfetch"
	"github.com/Keksclan/rawrfetch/config"
	"github.com/Keksclan/rawrfetch/fetcherr"
	"github.com/Keksclan/rawrfetch/retry"
)

// CLI holds the state shared by all commands of one invocation.
type CLI struct {
	stdout io.Writer
	stderr io.Writer

	cfgPath string
	envFile string
	debug   bool
	trace   bool

	engine *rawrfetch.Engine
	tp     *sdktrace.TracerProvider

	// opts are extra engine options, used by tests to inject a transport.
	opts []rawrfetch.Option
}

// New creates a CLI writing results to stdout and diagnostics to stderr.
func New(stdout, stderr io.Writer, opts ...rawrfetch.Option) *CLI {
	return &CLI{stdout: stdout, stderr: stderr, opts: opts}
}

// Execute runs the command line in args (os.Args when nil).
func (c *CLI) Execute(ctx context.Context, args ...string) error {
	root := c.RootCommand()
	if args != nil {
		root.SetArgs(args)
	}
	err := root.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails.
	return errors.Join(err, c.teardown(ctx))
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "rawrfetch",
		Short:             "Browse a two-source content catalog with retries and caching",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return c.teardown(cmd.Context())
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&c.trace, "trace", false, "print OpenTelemetry spans to stderr")

	root.AddCommand(
		c.newCreatorCmd(),
		c.newPostCmd(),
		c.newPostsCmd(),
		c.newRecentCmd(),
		c.newSearchCmd(),
		c.newCacheCmd(),
	)
	return root
}

func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	// A missing dotenv file is not an error.
	_ = godotenv.Load(c.envFile)

	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	if c.debug {
		cfg.Logger.Level = "debug"
	}

	opts := []rawrfetch.Option{
		rawrfetch.WithObserver(retry.ObserverFunc(func(_ context.Context, n retry.Notice) {
			fmt.Fprintln(c.stderr, n.Message())
		})),
	}
	if c.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(c.stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		c.tp = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		opts = append(opts, rawrfetch.WithTracerProvider(c.tp))
	}
	opts = append(opts, c.opts...)

	eng, err := rawrfetch.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := eng.Start(cmd.Context()); err != nil {
		_ = eng.Close(cmd.Context())
		return err
	}
	c.engine = eng
	return nil
}

func (c *CLI) teardown(ctx context.Context) error {
	var errs []error
	if c.engine != nil {
		errs = append(errs, c.engine.Close(context.WithoutCancel(ctx)))
		c.engine = nil
	}
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(context.WithoutCancel(ctx)))
		c.tp = nil
	}
	return errors.Join(errs...)
}

func (c *CLI) print(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// userError turns a fetch failure into the message shown to the user.
func userError(err error) error {
	if err == nil {
		return nil
	}
	var fe *fetcherr.Error
	if errors.As(err, &fe) {
		return errors.New(fe.UserMessage())
	}
	return err
}

// Package commands implements the CLI commands for purl2notices.
package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"go.trai.ch/purl2notices/internal/app"
	"go.trai.ch/purl2notices/internal/build"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/zerr"
)

// Application is the part of app.App driven by the CLI.
type Application interface {
	LoadConfig(explicit string) (*domain.Config, error)
	Generate(ctx context.Context, opts app.GenerateOptions) (*app.RunReport, error)
	Watch(ctx context.Context, opts app.GenerateOptions) error
	ValidateCache(ctx context.Context, path string) (*app.CacheReport, error)
}

// LogSettings is implemented by loggers whose output can be tuned from flags.
type LogSettings interface {
	SetLevel(level slog.Level)
	SetJSON(enable bool)
	SetFile(path string) error
}

// Option configures the CLI.
type Option func(*CLI)

// WithLogSettings lets the persistent logging flags reconfigure the logger.
func WithLogSettings(s LogSettings) Option {
	return func(c *CLI) { c.logs = s }
}

// CLI represents the command line interface for purl2notices.
type CLI struct {
	app     Application
	logs    LogSettings
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a Application, opts ...Option) *CLI {
	rootCmd := &cobra.Command{
		Use:           domain.ToolName,
		Short:         "Generate legal notices from package URLs",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}
	rootCmd.SetVersionTemplate(
		"{{.Name}} version {{.Version}} (commit: " + build.Commit + ", date: " + build.Date + ")\n")

	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Print debug output")
	flags.BoolP("quiet", "q", false, "Only print warnings and errors")
	flags.Bool("log-json", false, "Write log records as JSON")
	flags.String("log-file", "", "Also write every log record as JSON to this file")
	flags.String("config", "", "Path to the configuration file")

	// Persistent flags go first so --version does not claim -v.
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}
	for _, opt := range opts {
		opt(c)
	}

	rootCmd.PersistentPreRunE = c.configureLogging

	rootCmd.AddCommand(c.newGenerateCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error writers for the root command.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func (c *CLI) configureLogging(cmd *cobra.Command, _ []string) error {
	if c.logs == nil {
		return nil
	}
	flags := cmd.Flags()

	verbose, _ := flags.GetBool("verbose")
	quiet, _ := flags.GetBool("quiet")
	switch {
	case verbose:
		c.logs.SetLevel(slog.LevelDebug)
	case quiet:
		c.logs.SetLevel(slog.LevelWarn)
	default:
		c.logs.SetLevel(slog.LevelInfo)
	}

	jsonLogs, _ := flags.GetBool("log-json")
	c.logs.SetJSON(jsonLogs)

	if path, _ := flags.GetString("log-file"); path != "" {
		if err := c.logs.SetFile(path); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to open log file"), "path", path)
		}
	}
	return nil
}

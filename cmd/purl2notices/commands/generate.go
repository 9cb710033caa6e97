package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.trai.ch/purl2notices/internal/app"
	"go.trai.ch/purl2notices/internal/core/domain"
)

func (c *CLI) newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate [input]",
		Aliases: []string{"run"},
		Short:   "Generate a notice document",
		Long: "Generate a notice document from a package URL, a file with one package URL per line, " +
			"a directory to scan or a cache file. Without input the existing cache is re-rendered.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.generateOptions(cmd, args)
			if err != nil {
				return err
			}
			report, err := c.app.Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return reportFailures(cmd, report)
		},
	}
	addGenerateFlags(cmd.Flags())
	return cmd
}

func addGenerateFlags(flags *pflag.FlagSet) {
	flags.String("mode", string(domain.ModeAuto), "Input mode: auto, single, kissbom, scan or cache")
	flags.StringP("output", "o", "", "Write the document to this file instead of stdout")
	flags.StringP("format", "f", "", "Output format: text or html")
	flags.String("cache", "", "Path to the cache file")
	flags.Bool("no-cache", false, "Do not read or write the cache file")
	flags.Bool("force", false, "Re-resolve packages that are already cached")
	flags.IntP("parallel", "p", 0, "Number of packages resolved concurrently")
	flags.Duration("timeout", 0, "Timeout for a single resolution attempt")
	flags.Int("retries", 0, "Retries after a failed resolution attempt")
	flags.Bool("recursive", true, "Scan subdirectories")
	flags.Int("max-depth", 0, "Maximum directory depth when scanning")
	flags.StringArray("exclude", nil, "Glob pattern of paths to skip when scanning (repeatable)")
	flags.Bool("no-group-by-license", false, "List packages without grouping them by license")
	flags.Bool("no-copyright", false, "Leave copyright statements out of the document")
	flags.Bool("no-license-text", false, "Leave full license texts out of the document")
	flags.String("template", "", "Custom template file")
	flags.Bool("strict", false, "Abort the run on the first resolution failure")
	flags.Bool("cache-failures", false, "Store failed resolutions in the cache")
	flags.Bool("progress", false, "Print per-package progress")
}

// generateOptions loads the configuration and applies the flags that were set explicitly.
func (c *CLI) generateOptions(cmd *cobra.Command, args []string) (app.GenerateOptions, error) {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	cfg, err := c.app.LoadConfig(configPath)
	if err != nil {
		return app.GenerateOptions{}, errors.Join(domain.ErrInput, err)
	}
	if err := applyFlags(cfg, flags); err != nil {
		return app.GenerateOptions{}, errors.Join(domain.ErrInput, err)
	}

	modeFlag, _ := flags.GetString("mode")
	mode, err := domain.ParseInputMode(modeFlag)
	if err != nil {
		return app.GenerateOptions{}, errors.Join(domain.ErrInput, err)
	}

	opts := app.GenerateOptions{Config: cfg, Mode: mode}
	if len(args) > 0 {
		opts.Input = args[0]
	}
	opts.OutputPath, _ = flags.GetString("output")
	opts.Force, _ = flags.GetBool("force")
	opts.Progress, _ = flags.GetBool("progress")
	return opts, nil
}

//nolint:cyclop // one branch per flag
func applyFlags(cfg *domain.Config, flags *pflag.FlagSet) error {
	if flags.Changed("format") {
		v, _ := flags.GetString("format")
		format, err := domain.ParseFormat(v)
		if err != nil {
			return err
		}
		cfg.Output.Format = format
	}
	if flags.Changed("cache") {
		cfg.Cache.Path, _ = flags.GetString("cache")
		cfg.Cache.Enabled = true
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	if flags.Changed("parallel") {
		cfg.General.Parallel, _ = flags.GetInt("parallel")
	}
	if flags.Changed("timeout") {
		cfg.General.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("retries") {
		cfg.General.Retries, _ = flags.GetInt("retries")
	}
	if flags.Changed("recursive") {
		cfg.Scanning.Recursive, _ = flags.GetBool("recursive")
	}
	if flags.Changed("max-depth") {
		cfg.Scanning.MaxDepth, _ = flags.GetInt("max-depth")
	}
	if flags.Changed("exclude") {
		exclude, _ := flags.GetStringArray("exclude")
		cfg.Scanning.Exclude = append(cfg.Scanning.Exclude, exclude...)
	}
	if v, _ := flags.GetBool("no-group-by-license"); v {
		cfg.Output.GroupByLicense = false
	}
	if v, _ := flags.GetBool("no-copyright"); v {
		cfg.Output.IncludeCopyright = false
	}
	if v, _ := flags.GetBool("no-license-text"); v {
		cfg.Output.IncludeLicenseText = false
	}
	if flags.Changed("template") {
		cfg.Output.Template, _ = flags.GetString("template")
	}
	if v, _ := flags.GetBool("strict"); v {
		cfg.General.ContinueOnError = false
	}
	if v, _ := flags.GetBool("cache-failures"); v {
		cfg.Cache.CacheFailures = true
	}
	return cfg.Validate()
}

// reportFailures prints the identifiers that could not be resolved. They do not fail the
// command: the document lists them as unresolved.
func reportFailures(cmd *cobra.Command, report *app.RunReport) error {
	if report == nil || len(report.Failures) == 0 {
		return nil
	}
	out := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(out, "%d of %d packages could not be resolved:\n", len(report.Failures), report.Requested)
	for _, f := range report.Failures {
		_, _ = fmt.Fprintf(out, "  %s: %s\n", f.Identifier, f.Error)
	}
	return nil
}

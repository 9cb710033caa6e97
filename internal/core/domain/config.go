package domain

import (
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// Format is the output format of the notice document.
type Format string

const (
	// FormatText renders a plain text document.
	FormatText Format = "text"
	// FormatHTML renders an HTML document.
	FormatHTML Format = "html"
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatText, "txt", "":
		return FormatText, nil
	case FormatHTML, "htm":
		return FormatHTML, nil
	default:
		return "", zerr.With(ErrUnknownFormat, "format", s)
	}
}

// InputMode selects how the input argument is interpreted.
type InputMode string

const (
	// ModeAuto detects the mode from the input.
	ModeAuto InputMode = "auto"
	// ModeSingle treats the input as one package URL.
	ModeSingle InputMode = "single"
	// ModeKissBOM reads a text file with one package URL per line.
	ModeKissBOM InputMode = "kissbom"
	// ModeScan walks a directory for manifests and archives.
	ModeScan InputMode = "scan"
	// ModeCache reads the identifiers of an existing cache file.
	ModeCache InputMode = "cache"
)

// ParseInputMode converts a string to an InputMode. The empty string means auto.
func ParseInputMode(s string) (InputMode, error) {
	switch m := InputMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeSingle, ModeKissBOM, ModeScan, ModeCache:
		return m, nil
	default:
		return "", zerr.With(ErrUnknownMode, "mode", s)
	}
}

// GeneralConfig controls resolution.
type GeneralConfig struct {
	Parallel        int
	Timeout         time.Duration
	Retries         int
	Backoff         time.Duration
	GracePeriod     time.Duration
	RunTimeout      time.Duration
	ContinueOnError bool
}

// CacheConfig controls the cache file.
type CacheConfig struct {
	Enabled       bool
	Path          string
	CacheFailures bool
}

// ScanConfig controls directory scanning.
type ScanConfig struct {
	Recursive bool
	MaxDepth  int
	Exclude   []string
}

// OutputConfig controls the rendered document.
type OutputConfig struct {
	Format             Format
	GroupByLicense     bool
	IncludeCopyright   bool
	IncludeLicenseText bool
	Template           string
}

// ToolsConfig controls the external collaborators. Command templates may contain the
// placeholders {purl} and {path}.
type ToolsConfig struct {
	Purl2Src      []string
	Upmex         []string
	Oslili        []string
	DownloadsDir  string
	KeepDownloads bool
	UserAgent     string
}

// LicensesConfig controls where fallback license texts come from.
type LicensesConfig struct {
	TextsDir string
}

// Config is the effective configuration of a run.
type Config struct {
	General  GeneralConfig
	Cache    CacheConfig
	Scanning ScanConfig
	Output   OutputConfig
	Tools    ToolsConfig
	Licenses LicensesConfig

	// Source is the file the configuration was read from, empty for defaults.
	Source string
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Parallel:        4,
			Timeout:         60 * time.Second,
			Retries:         2,
			Backoff:         time.Second,
			GracePeriod:     5 * time.Second,
			ContinueOnError: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    DefaultCachePath(),
		},
		Scanning: ScanConfig{
			Recursive: true,
			MaxDepth:  10,
		},
		Output: OutputConfig{
			Format:             FormatText,
			GroupByLicense:     true,
			IncludeCopyright:   true,
			IncludeLicenseText: true,
		},
		Tools: ToolsConfig{
			Purl2Src: []string{"purl2src", "{purl}", "--format", "json"},
			Upmex:    []string{"upmex", "extract", "--format", "json", "{path}"},
			Oslili:   []string{"oslili", "{path}", "--format", "json"},
		},
	}
}

// Validate checks that all values are in range.
func (c *Config) Validate() error {
	switch {
	case c.General.Parallel < 1:
		return zerr.With(ErrConfigInvalid, "general.parallel", c.General.Parallel)
	case c.General.Retries < 0:
		return zerr.With(ErrConfigInvalid, "general.retries", c.General.Retries)
	case c.General.Timeout < 0:
		return zerr.With(ErrConfigInvalid, "general.timeout", c.General.Timeout.String())
	case c.General.Backoff < 0:
		return zerr.With(ErrConfigInvalid, "general.backoff", c.General.Backoff.String())
	case c.General.GracePeriod < 0:
		return zerr.With(ErrConfigInvalid, "general.grace_period", c.General.GracePeriod.String())
	case c.General.RunTimeout < 0:
		return zerr.With(ErrConfigInvalid, "general.run_timeout", c.General.RunTimeout.String())
	case c.Scanning.MaxDepth < 0:
		return zerr.With(ErrConfigInvalid, "scanning.max_depth", c.Scanning.MaxDepth)
	case c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "":
		return zerr.With(ErrConfigInvalid, "cache.path", c.Cache.Path)
	}

	if _, err := ParseFormat(string(c.Output.Format)); err != nil {
		return err
	}

	for name, cmd := range map[string][]string{
		"tools.purl2src": c.Tools.Purl2Src,
		"tools.upmex":    c.Tools.Upmex,
		"tools.oslili":   c.Tools.Oslili,
	} {
		if len(cmd) == 0 || strings.TrimSpace(cmd[0]) == "" {
			return zerr.With(ErrConfigInvalid, name, strings.Join(cmd, " "))
		}
	}

	return nil
}

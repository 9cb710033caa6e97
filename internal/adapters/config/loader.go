// Package config provides the configuration loader for purl2notices.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "PURL2NOTICES_"

// Loader implements ports.ConfigLoader using a YAML file, a .env file and the environment.
type Loader struct {
	Logger ports.Logger

	// Getenv looks up process environment variables. It defaults to os.Getenv.
	Getenv func(string) string
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, Getenv: os.Getenv}
}

// Load builds the effective configuration: defaults, then the config file, then environment
// variables. Variables from a .env file in cwd apply unless the process environment sets them.
func (l *Loader) Load(cwd, explicit string) (*domain.Config, error) {
	env, err := l.environment(cwd)
	if err != nil {
		return nil, errors.Join(domain.ErrInput, err)
	}

	cfg := domain.DefaultConfig()

	path := explicit
	if path == "" {
		path = env("CONFIG")
	}
	if path == "" {
		path = findConfiguration(cwd)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}

	if path != "" {
		var file File
		if err := readAndUnmarshalYAML(path, &file); err != nil {
			return nil, errors.Join(domain.ErrInput, err)
		}
		if err := applyFile(cfg, &file); err != nil {
			return nil, errors.Join(domain.ErrInput, zerr.With(err, "path", path))
		}
		cfg.Source = path
		l.Logger.Debug("loaded configuration from " + path)
	}

	if err := applyEnv(cfg, env); err != nil {
		return nil, errors.Join(domain.ErrInput, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(domain.ErrInput, err)
	}

	return cfg, nil
}

// environment returns a lookup for PURL2NOTICES_* variables. The process environment wins
// over values from cwd/.env.
func (l *Loader) environment(cwd string) (func(string) string, error) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	dotenv := map[string]string{}
	dotenvPath := filepath.Join(cwd, ".env")
	if _, err := os.Stat(dotenvPath); err == nil {
		values, err := godotenv.Read(dotenvPath)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", dotenvPath)
		}
		dotenv = values
	}

	return func(key string) string {
		if v := getenv(EnvPrefix + key); v != "" {
			return v
		}
		return dotenv[EnvPrefix+key]
	}, nil
}

// findConfiguration walks up from cwd and returns the first config file found, or "".
func findConfiguration(cwd string) string {
	currentDir := cwd
	for {
		for _, name := range []string{domain.ConfigFileName, domain.HiddenConfigFileName} {
			candidate := filepath.Join(currentDir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return ""
		}
		currentDir = parentDir
	}
}

func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is chosen by the user
	data, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", configPath)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", configPath)
	}

	return nil
}

func applyFile(cfg *domain.Config, f *File) error {
	if g := f.General; g != nil {
		setInt(&cfg.General.Parallel, g.Parallel)
		setInt(&cfg.General.Retries, g.Retries)
		setBool(&cfg.General.ContinueOnError, g.ContinueOnError)
		for key, d := range map[string]struct {
			dst *time.Duration
			src *string
		}{
			"general.timeout":      {&cfg.General.Timeout, g.Timeout},
			"general.backoff":      {&cfg.General.Backoff, g.Backoff},
			"general.grace_period": {&cfg.General.GracePeriod, g.GracePeriod},
			"general.run_timeout":  {&cfg.General.RunTimeout, g.RunTimeout},
		} {
			if err := setDuration(d.dst, d.src, key); err != nil {
				return err
			}
		}
	}

	if c := f.Cache; c != nil {
		setBool(&cfg.Cache.Enabled, c.Enabled)
		setString(&cfg.Cache.Path, c.Path)
		setBool(&cfg.Cache.CacheFailures, c.CacheFailures)
	}

	if s := f.Scanning; s != nil {
		setBool(&cfg.Scanning.Recursive, s.Recursive)
		setInt(&cfg.Scanning.MaxDepth, s.MaxDepth)
		if s.Exclude != nil {
			cfg.Scanning.Exclude = s.Exclude
		}
	}

	if o := f.Output; o != nil {
		if o.Format != nil {
			format, err := domain.ParseFormat(*o.Format)
			if err != nil {
				return err
			}
			cfg.Output.Format = format
		}
		setBool(&cfg.Output.GroupByLicense, o.GroupByLicense)
		setBool(&cfg.Output.IncludeCopyright, o.IncludeCopyright)
		setBool(&cfg.Output.IncludeLicenseText, o.IncludeLicenseText)
		setString(&cfg.Output.Template, o.Template)
	}

	if t := f.Tools; t != nil {
		if t.Purl2Src != nil {
			cfg.Tools.Purl2Src = t.Purl2Src
		}
		if t.Upmex != nil {
			cfg.Tools.Upmex = t.Upmex
		}
		if t.Oslili != nil {
			cfg.Tools.Oslili = t.Oslili
		}
		setString(&cfg.Tools.DownloadsDir, t.DownloadsDir)
		setBool(&cfg.Tools.KeepDownloads, t.KeepDownloads)
		setString(&cfg.Tools.UserAgent, t.UserAgent)
	}

	if lic := f.Licenses; lic != nil {
		setString(&cfg.Licenses.TextsDir, lic.TextsDir)
	}

	return nil
}

func applyEnv(cfg *domain.Config, env func(string) string) error {
	ints := map[string]*int{
		"PARALLEL":  &cfg.General.Parallel,
		"RETRIES":   &cfg.General.Retries,
		"MAX_DEPTH": &cfg.Scanning.MaxDepth,
	}
	for key, dst := range ints {
		if raw := env(key); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrConfigInvalid.Error()), EnvPrefix+key, raw)
			}
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":     &cfg.General.Timeout,
		"RUN_TIMEOUT": &cfg.General.RunTimeout,
	}
	for key, dst := range durations {
		raw := env(key)
		if err := setDuration(dst, &raw, EnvPrefix+key); err != nil {
			return err
		}
	}

	bools := map[string]*bool{
		"CACHE_ENABLED":  &cfg.Cache.Enabled,
		"CACHE_FAILURES": &cfg.Cache.CacheFailures,
		"KEEP_DOWNLOADS": &cfg.Tools.KeepDownloads,
	}
	for key, dst := range bools {
		if raw := env(key); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrConfigInvalid.Error()), EnvPrefix+key, raw)
			}
			*dst = v
		}
	}

	strs := map[string]*string{
		"CACHE":             &cfg.Cache.Path,
		"TEMPLATE":          &cfg.Output.Template,
		"DOWNLOADS_DIR":     &cfg.Tools.DownloadsDir,
		"USER_AGENT":        &cfg.Tools.UserAgent,
		"LICENSE_TEXTS_DIR": &cfg.Licenses.TextsDir,
	}
	for key, dst := range strs {
		if raw := env(key); raw != "" {
			*dst = raw
		}
	}

	if raw := env("FORMAT"); raw != "" {
		format, err := domain.ParseFormat(raw)
		if err != nil {
			return err
		}
		cfg.Output.Format = format
	}

	return nil
}

func setInt(dst, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setDuration(dst *time.Duration, src *string, key string) error {
	if src == nil || strings.TrimSpace(*src) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*src))
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigInvalid.Error()), key, *src)
	}
	*dst = d
	return nil
}

package domain_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/purl2notices/internal/core/domain"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := domain.DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.General.Parallel)
	assert.Equal(t, 2, cfg.General.Retries)
	assert.Equal(t, time.Second, cfg.General.Backoff)
	assert.Equal(t, 5*time.Second, cfg.General.GracePeriod)
	assert.True(t, cfg.General.ContinueOnError)
	assert.Equal(t, ".purl2notices.cache.json", cfg.Cache.Path)
	assert.False(t, cfg.Cache.CacheFailures)
	assert.Equal(t, 10, cfg.Scanning.MaxDepth)
	assert.Equal(t, domain.FormatText, cfg.Output.Format)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Config)
		want   string
	}{
		{name: "parallel", mutate: func(c *domain.Config) { c.General.Parallel = 0 }, want: "invalid configuration"},
		{name: "retries", mutate: func(c *domain.Config) { c.General.Retries = -1 }, want: "invalid configuration"},
		{name: "timeout", mutate: func(c *domain.Config) { c.General.Timeout = -time.Second }, want: "invalid configuration"},
		{name: "max depth", mutate: func(c *domain.Config) { c.Scanning.MaxDepth = -1 }, want: "invalid configuration"},
		{name: "cache path", mutate: func(c *domain.Config) { c.Cache.Path = " " }, want: "invalid configuration"},
		{name: "format", mutate: func(c *domain.Config) { c.Output.Format = "pdf" }, want: "unknown output format"},
		{name: "tool command", mutate: func(c *domain.Config) { c.Tools.Oslili = nil }, want: "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultConfig()
			tt.mutate(cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestConfig_ValidateAllowsEmptyCachePathWhenDisabled(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Cache.Path = ""

	assert.NoError(t, cfg.Validate())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]domain.Format{
		"text": domain.FormatText,
		"TXT":  domain.FormatText,
		"":     domain.FormatText,
		"html": domain.FormatHTML,
		"htm":  domain.FormatHTML,
	} {
		got, err := domain.ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := domain.ParseFormat("markdown")
	assert.ErrorContains(t, err, domain.ErrUnknownFormat.Error())
}

func TestParseInputMode(t *testing.T) {
	for in, want := range map[string]domain.InputMode{
		"":        domain.ModeAuto,
		"auto":    domain.ModeAuto,
		"single":  domain.ModeSingle,
		"KISSBOM": domain.ModeKissBOM,
		"scan":    domain.ModeScan,
		"cache":   domain.ModeCache,
	} {
		got, err := domain.ParseInputMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := domain.ParseInputMode("sbom")
	assert.ErrorContains(t, err, domain.ErrUnknownMode.Error())
}

func TestLayoutPaths(t *testing.T) {
	assert.Equal(t, ".purl2notices.cache.json", domain.DefaultCachePath())
	assert.Equal(t, filepath.Join("purl2notices", "downloads"),
		filepath.Join(filepath.Base(filepath.Dir(domain.DefaultDownloadsPath())), filepath.Base(domain.DefaultDownloadsPath())))
}

package intake_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/purl2notices/internal/adapters/fs"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/purl2notices/internal/core/ports/mocks"
	"go.trai.ch/purl2notices/internal/engine/intake"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	scanner    *mocks.MockDirectoryScanner
	identifier *mocks.MockArtifactIdentifier
	store      *mocks.MockCacheStore
	logger     *mocks.MockLogger
	source     *intake.Source
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		scanner:    mocks.NewMockDirectoryScanner(ctrl),
		identifier: mocks.NewMockArtifactIdentifier(ctrl),
		store:      mocks.NewMockCacheStore(ctrl),
		logger:     mocks.NewMockLogger(ctrl),
	}
	f.logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	f.source = intake.NewSource(f.scanner, f.identifier, f.store, f.logger)
	return f
}

func keys(ids []domain.PackageIdentifier) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Key()
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDetectMode(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "purls.txt", "pkg:npm/express@4.18.0\n")
	bom := writeFile(t, dir, "cache.json", `{"bomFormat": "CycloneDX", "components": []}`)
	plainJSON := writeFile(t, dir, "other.json", `{"name": "x"}`)

	tests := []struct {
		input string
		want  domain.InputMode
	}{
		{input: "pkg:npm/express@4.18.0", want: domain.ModeSingle},
		{input: "  pkg:pypi/requests", want: domain.ModeSingle},
		{input: dir, want: domain.ModeScan},
		{input: bom, want: domain.ModeCache},
		{input: list, want: domain.ModeKissBOM},
		{input: plainJSON, want: domain.ModeKissBOM},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.input), func(t *testing.T) {
			got, err := intake.DetectMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectMode_Errors(t *testing.T) {
	_, err := intake.DetectMode(" ")
	require.ErrorIs(t, err, domain.ErrInput)
	require.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = intake.DetectMode(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, domain.ErrInput)
	assert.ErrorContains(t, err, domain.ErrInputNotFound.Error())
}

func TestParseList(t *testing.T) {
	data := []byte("\ufeff# dependencies\n" +
		"pkg:npm/express@4.18.0\n" +
		"\n" +
		"   \n" +
		"  pkg:pypi/requests@2.31.0  \r\n" +
		"not-a-purl\n" +
		"# pkg:npm/commented@1.0.0\n" +
		"pkg:npm/Express@4.18.0\n")

	ids, warnings := intake.ParseList(data)

	assert.Equal(t, []string{
		"pkg:npm/express@4.18.0",
		"pkg:pypi/requests@2.31.0",
		"pkg:npm/express@4.18.0",
	}, keys(ids))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `line 6: skipping "not-a-purl"`)
}

func TestParseList_LongLineSkipsOnlyThatLine(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	data := []byte("pkg:npm/a@1.0.0\n" + long + "\npkg:npm/b@1.0.0\n")

	ids, warnings := intake.ParseList(data)

	assert.Equal(t, []string{"pkg:npm/a@1.0.0", "pkg:npm/b@1.0.0"}, keys(ids))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "line 2: skipping")
	assert.Less(t, len(warnings[0]), 1024)
}

func TestSource_Collect_Single(t *testing.T) {
	f := newFixture(t)

	in, err := f.source.Collect(context.Background(), intake.Request{Input: "pkg:NPM/Express@4.18.0"})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeSingle, in.Mode)
	assert.Equal(t, []string{"pkg:npm/express@4.18.0"}, keys(in.Identifiers))
}

func TestSource_Collect_SingleInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.source.Collect(context.Background(), intake.Request{Input: "express", Mode: domain.ModeSingle})
	require.ErrorIs(t, err, domain.ErrInput)
	assert.ErrorContains(t, err, domain.ErrInvalidIdentifier.Error())
}

func TestSource_Collect_List(t *testing.T) {
	f := newFixture(t)
	f.logger.EXPECT().Warn(gomock.Any()).Times(1)

	path := writeFile(t, t.TempDir(), "purls.txt",
		"pkg:npm/b@1.0.0\n#comment\npkg:npm/a@1.0.0\nbroken\npkg:npm/b@1.0.0\n")

	in, err := f.source.Collect(context.Background(), intake.Request{Input: path})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeKissBOM, in.Mode)
	assert.Equal(t, []string{"pkg:npm/b@1.0.0", "pkg:npm/a@1.0.0"}, keys(in.Identifiers))
	require.Len(t, in.Warnings, 1)
	assert.Contains(t, in.Warnings[0], path)
}

func TestSource_Collect_ListMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.source.Collect(context.Background(), intake.Request{
		Input: filepath.Join(t.TempDir(), "nope.txt"),
		Mode:  domain.ModeKissBOM,
	})
	require.ErrorIs(t, err, domain.ErrInput)
	assert.ErrorContains(t, err, domain.ErrInputNotFound.Error())
}

func TestSource_Collect_Scan(t *testing.T) {
	f := newFixture(t)
	opts := ports.ScanOptions{Recursive: true, MaxDepth: 3, Exclude: []string{"vendor/**"}}
	files := []string{"/src/a/package.json", "/src/b/lib.whl", "/src/c/README.bin", "/src/d/package.json"}

	f.scanner.EXPECT().Scan(gomock.Any(), "/src", opts).Return(files, nil)
	f.identifier.EXPECT().Identify(gomock.Any(), files[0]).
		Return(domain.MustParseIdentifier("pkg:npm/a@1.0.0"), nil)
	f.identifier.EXPECT().Identify(gomock.Any(), files[1]).
		Return(domain.MustParseIdentifier("pkg:pypi/lib@2.0.0"), nil)
	f.identifier.EXPECT().Identify(gomock.Any(), files[2]).
		Return(domain.PackageIdentifier{}, domain.ErrUnmappableArtifact)
	f.identifier.EXPECT().Identify(gomock.Any(), files[3]).
		Return(domain.MustParseIdentifier("pkg:npm/a@1.0.0"), nil)

	in, err := f.source.Collect(context.Background(), intake.Request{
		Input:       "/src",
		Mode:        domain.ModeScan,
		Scan:        opts,
		Parallelism: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"pkg:npm/a@1.0.0", "pkg:pypi/lib@2.0.0"}, keys(in.Identifiers))
	require.Len(t, in.Unmapped, 1)
	assert.Equal(t, files[2], in.Unmapped[0].Path)
	assert.Equal(t, domain.ErrUnmappableArtifact.Error(), in.Unmapped[0].Reason)
}

func TestSource_Collect_ScanUnreadableRoot(t *testing.T) {
	f := newFixture(t)
	f.scanner.EXPECT().Scan(gomock.Any(), "/locked", gomock.Any()).
		Return(nil, errors.New("permission denied"))

	_, err := f.source.Collect(context.Background(), intake.Request{Input: "/locked", Mode: domain.ModeScan})
	require.ErrorIs(t, err, domain.ErrInput)
	assert.ErrorContains(t, err, "permission denied")
}

func TestSource_Collect_ScanCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	f.scanner.EXPECT().Scan(gomock.Any(), "/src", gomock.Any()).Return([]string{"/src/package.json"}, nil)
	f.identifier.EXPECT().Identify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (domain.PackageIdentifier, error) {
			cancel()
			return domain.PackageIdentifier{}, ctx.Err()
		})

	_, err := f.source.Collect(ctx, intake.Request{Input: "/src", Mode: domain.ModeScan})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSource_Collect_ScanWithManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "web/package.json", `{"name": "@acme/web", "version": "1.2.3"}`)
	writeFile(t, dir, "svc/go.mod", "module example.com/svc\n\ngo 1.22\n")
	writeFile(t, dir, "node_modules/left-pad/package.json", `{"name": "left-pad", "version": "1.3.0"}`)
	writeFile(t, dir, "broken/package.json", `{"version": "1.0.0"}`)

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()

	source := intake.NewSource(fs.NewScanner(), fs.NewManifestDetector(), mocks.NewMockCacheStore(ctrl), logger)
	in, err := source.Collect(context.Background(), intake.Request{
		Input: dir,
		Scan:  ports.ScanOptions{Recursive: true, MaxDepth: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeScan, in.Mode)
	assert.Equal(t, []string{"pkg:golang/example.com/svc", "pkg:npm/%40acme/web@1.2.3"}, keys(in.Identifiers))
	require.Len(t, in.Unmapped, 1)
	assert.Equal(t, filepath.Join(dir, "broken", "package.json"), in.Unmapped[0].Path)
}

func TestSource_Collect_Cache(t *testing.T) {
	f := newFixture(t)
	path := writeFile(t, t.TempDir(), "cache.json", `{"bomFormat": "CycloneDX"}`)

	cache := &domain.Cache{Entries: []domain.CacheEntry{
		{Package: domain.ResolvedPackage{Identifier: domain.MustParseIdentifier("pkg:npm/b@1.0.0")}},
		{Package: domain.ResolvedPackage{Identifier: domain.MustParseIdentifier("pkg:npm/a@1.0.0")}},
	}}
	f.store.EXPECT().Load(path).Return(cache, nil)

	in, err := f.source.Collect(context.Background(), intake.Request{Input: path})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeCache, in.Mode)
	assert.Equal(t, path, in.CachePath)
	assert.Same(t, cache, in.Cache)
	assert.Equal(t, []string{"pkg:npm/b@1.0.0", "pkg:npm/a@1.0.0"}, keys(in.Identifiers))
}

func TestSource_Collect_CacheCorrupt(t *testing.T) {
	f := newFixture(t)
	f.store.EXPECT().Load("bad.json").Return(nil, errors.Join(domain.ErrCacheCorrupt, domain.ErrCacheUnmarshalFailed))

	_, err := f.source.Collect(context.Background(), intake.Request{Input: "bad.json", Mode: domain.ModeCache})
	require.ErrorIs(t, err, domain.ErrCacheCorrupt)
}

func TestSource_Collect_UnknownMode(t *testing.T) {
	f := newFixture(t)

	_, err := f.source.Collect(context.Background(), intake.Request{Input: "x", Mode: "sbom"})
	require.ErrorIs(t, err, domain.ErrInput)
	assert.ErrorContains(t, err, domain.ErrUnknownMode.Error())
}

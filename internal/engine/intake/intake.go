// Package intake turns the user's input into an ordered set of package identifiers.
package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Request describes one input.
type Request struct {
	// Input is a package URL or a path, depending on Mode.
	Input string
	Mode  domain.InputMode
	Scan  ports.ScanOptions
	// Parallelism bounds concurrent artifact identification while scanning.
	Parallelism int
}

// UnmappedFile is a scanned file that no identifier could be derived for.
type UnmappedFile struct {
	Path   string
	Reason string
}

// Intake is the normalized input of a run.
type Intake struct {
	// Mode is the effective mode after auto detection.
	Mode        domain.InputMode
	Identifiers []domain.PackageIdentifier
	Unmapped    []UnmappedFile
	Warnings    []string
	// CachePath and Cache are set in cache mode.
	CachePath string
	Cache     *domain.Cache
}

// Source collects identifiers from all supported inputs.
type Source struct {
	scanner    ports.DirectoryScanner
	identifier ports.ArtifactIdentifier
	store      ports.CacheStore
	logger     ports.Logger
}

// NewSource creates a Source.
func NewSource(
	scanner ports.DirectoryScanner,
	identifier ports.ArtifactIdentifier,
	store ports.CacheStore,
	logger ports.Logger,
) *Source {
	return &Source{scanner: scanner, identifier: identifier, store: store, logger: logger}
}

// Collect reads req.Input according to req.Mode. Identifiers are unique and keep the
// order they were first seen in.
func (s *Source) Collect(ctx context.Context, req Request) (*Intake, error) {
	mode := req.Mode
	if mode == "" || mode == domain.ModeAuto {
		detected, err := DetectMode(req.Input)
		if err != nil {
			return nil, err
		}
		mode = detected
	}

	in := &Intake{Mode: mode}
	var err error
	switch mode {
	case domain.ModeSingle:
		err = s.single(in, req.Input)
	case domain.ModeKissBOM:
		err = s.list(in, req.Input)
	case domain.ModeScan:
		err = s.scan(ctx, in, req)
	case domain.ModeCache:
		err = s.cache(in, req.Input)
	default:
		err = errors.Join(domain.ErrInput, zerr.With(domain.ErrUnknownMode, "mode", string(mode)))
	}
	if err != nil {
		return nil, err
	}

	in.Identifiers = domain.UniqueIdentifiers(in.Identifiers)
	return in, nil
}

// DetectMode picks the mode for input: a package URL is single, a directory is scanned,
// a CycloneDX document is a cache and any other file is a list.
func DetectMode(input string) (domain.InputMode, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.Join(domain.ErrInput, domain.ErrEmptyInput)
	}
	if strings.HasPrefix(input, "pkg:") {
		return domain.ModeSingle, nil
	}

	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errors.Join(domain.ErrInput, zerr.With(domain.ErrInputNotFound, "path", input))
		}
		return "", inputError(err, input)
	}
	if info.IsDir() {
		return domain.ModeScan, nil
	}

	//nolint:gosec // input path is chosen by the user
	data, err := os.ReadFile(input)
	if err != nil {
		return "", inputError(err, input)
	}
	if isCycloneDX(data) {
		return domain.ModeCache, nil
	}
	return domain.ModeKissBOM, nil
}

func isCycloneDX(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var probe struct {
		BOMFormat string `json:"bomFormat"`
	}
	return json.Unmarshal(trimmed, &probe) == nil && probe.BOMFormat != ""
}

func (s *Source) single(in *Intake, input string) error {
	id, err := domain.ParseIdentifier(input)
	if err != nil {
		return errors.Join(domain.ErrInput, err)
	}
	in.Identifiers = append(in.Identifiers, id)
	return nil
}

func (s *Source) list(in *Intake, path string) error {
	//nolint:gosec // input path is chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Join(domain.ErrInput, zerr.With(domain.ErrInputNotFound, "path", path))
		}
		return inputError(err, path)
	}

	ids, warnings := ParseList(data)
	for _, w := range warnings {
		s.warn(in, fmt.Sprintf("%s: %s", path, w))
	}
	in.Identifiers = append(in.Identifiers, ids...)
	return nil
}

// ParseList parses a list file with one package URL per line. Blank lines and lines
// starting with # are ignored. Malformed lines are reported as warnings.
func ParseList(data []byte) ([]domain.PackageIdentifier, []string) {
	var ids []domain.PackageIdentifier
	var warnings []string

	lineNo := 0
	for raw := range bytes.Lines(data) {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(string(raw), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := domain.ParseIdentifier(line)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: skipping %q: %v", lineNo, abbreviate(line), err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, warnings
}

const maxQuoted = 80

func abbreviate(s string) string {
	if len(s) <= maxQuoted {
		return s
	}
	return s[:maxQuoted] + "..."
}

func (s *Source) scan(ctx context.Context, in *Intake, req Request) error {
	files, err := s.scanner.Scan(ctx, req.Input, req.Scan)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Join(domain.ErrInput, zerr.With(err, "path", req.Input))
	}
	s.logger.Debug(fmt.Sprintf("found %d candidate file(s) in %s", len(files), req.Input))

	type mapped struct {
		id  domain.PackageIdentifier
		err error
	}
	results := make([]mapped, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(req.Parallelism, 1))
	for i, file := range files {
		g.Go(func() error {
			id, err := s.identifier.Identify(gctx, file)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = mapped{id: id, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, res := range results {
		if res.err != nil {
			in.Unmapped = append(in.Unmapped, UnmappedFile{Path: files[i], Reason: domain.Describe(res.err)})
			s.logger.Debug(fmt.Sprintf("could not map %s: %v", files[i], res.err))
			continue
		}
		in.Identifiers = append(in.Identifiers, res.id)
	}
	return nil
}

func (s *Source) cache(in *Intake, path string) error {
	cache, err := s.store.Load(path)
	if err != nil {
		return err
	}
	in.CachePath = path
	in.Cache = cache
	in.Identifiers = append(in.Identifiers, cache.Identifiers()...)
	return nil
}

func (s *Source) warn(in *Intake, msg string) {
	in.Warnings = append(in.Warnings, msg)
	s.logger.Warn(msg)
}

func inputError(err error, path string) error {
	return errors.Join(domain.ErrInput, zerr.With(zerr.Wrap(err, domain.ErrInputReadFailed.Error()), "path", path))
}

// Package fs provides file system adapters for scanning directories, hashing files and
// recognizing package manifests.
package fs

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.DirectoryScanner = (*Scanner)(nil)

// Directories that never contain packages of interest.
var skippedDirs = []string{".git", ".jj", ".hg", ".svn", "node_modules"}

// Manifest file names recognized by their exact base name.
var manifestNames = []string{
	"package.json",
	"go.mod",
	"Cargo.toml",
	"pyproject.toml",
	"setup.py",
	"pom.xml",
	"composer.json",
}

// Manifest and archive suffixes. Longer suffixes come first so ".tar.gz" wins over ".gz".
var candidateSuffixes = []string{
	".tar.gz",
	".gemspec",
	".nuspec",
	".nupkg",
	".crate",
	".whl",
	".egg",
	".tgz",
	".zip",
	".jar",
	".war",
	".ear",
	".gem",
	".deb",
	".rpm",
}

// Scanner walks a directory tree and yields package manifests and archives.
type Scanner struct{}

// NewScanner creates a new Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan returns the candidate files below root in lexical walk order.
func (s *Scanner) Scan(ctx context.Context, root string, opts ports.ScanOptions) ([]string, error) {
	excludes, err := compileExcludes(opts.Exclude)
	if err != nil {
		return nil, err
	}

	var files []string
	for path, err := range s.walk(ctx, root, opts, excludes) {
		if err != nil {
			return nil, err
		}
		if IsCandidate(path) {
			files = append(files, path)
		}
	}
	return files, nil
}

// walk yields every regular file below root that survives the depth, recursion and
// exclude rules. Walk errors are yielded once and end the iteration.
func (s *Scanner) walk(
	ctx context.Context, root string, opts ports.ScanOptions, excludes []glob.Glob,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return zerr.With(zerr.Wrap(err, domain.ErrInputReadFailed.Error()), "path", root)
				}
				// Unreadable subdirectories are skipped.
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return zerr.With(zerr.Wrap(relErr, domain.ErrInputReadFailed.Error()), "path", path)
			}
			if rel == "." {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				return shouldSkipDir(d.Name(), rel, opts, excludes)
			}
			if !d.Type().IsRegular() || excluded(rel, d.Name(), excludes) {
				return nil
			}

			if !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})

		if walkErr != nil {
			yield("", walkErr)
		}
	}
}

// shouldSkipDir returns filepath.SkipDir when the walk must not descend into the directory.
func shouldSkipDir(name, rel string, opts ports.ScanOptions, excludes []glob.Glob) error {
	if slices.Contains(skippedDirs, name) {
		return filepath.SkipDir
	}
	if !opts.Recursive {
		return filepath.SkipDir
	}
	// rel of a directory at depth n has n-1 separators. Files directly inside it sit at depth n+1.
	if opts.MaxDepth > 0 && strings.Count(rel, "/")+1 >= opts.MaxDepth {
		return filepath.SkipDir
	}
	if excluded(rel, name, excludes) {
		return filepath.SkipDir
	}
	return nil
}

// IsCandidate reports whether path looks like a package manifest or archive.
func IsCandidate(path string) bool {
	base := filepath.Base(path)
	if slices.Contains(manifestNames, base) {
		return true
	}
	lower := strings.ToLower(base)
	for _, suffix := range candidateSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Join(domain.ErrInput,
				zerr.With(zerr.Wrap(err, domain.ErrConfigInvalid.Error()), "exclude", p))
		}
		out = append(out, g)
	}
	return out, nil
}

func excluded(rel, name string, excludes []glob.Glob) bool {
	for _, g := range excludes {
		if g.Match(rel) || g.Match(name) {
			return true
		}
	}
	return false
}

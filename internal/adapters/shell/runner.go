// Package shell runs the external extraction tools.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CommandRunner = (*Runner)(nil)

const (
	// Lines of stderr kept for the error message of a failed tool.
	stderrTailLines = 5
	// How long output pipes may stay open after the tool was killed.
	waitDelay = 2 * time.Second
)

// Runner implements ports.CommandRunner using os/exec.
type Runner struct {
	logger  ports.Logger
	overlay []string
}

// NewRunner creates a new Runner. Overlay entries (KEY=VALUE) are applied on top of the
// process environment; a PATH entry is prepended to the system PATH.
func NewRunner(logger ports.Logger, overlay ...string) *Runner {
	return &Runner{
		logger:  logger,
		overlay: overlay,
	}
}

// Run executes argv and returns its standard output. Standard error is logged at debug
// level line by line.
func (r *Runner) Run(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.Join(domain.ErrNotRetryable, domain.ErrToolNotFound)
	}

	name := argv[0]
	args := argv[1:]

	cmdEnv := resolveEnvironment(os.Environ(), r.overlay)

	executable := name
	if !filepath.IsAbs(name) && !strings.ContainsRune(name, filepath.Separator) {
		lp, err := lookPath(name, cmdEnv)
		if err != nil {
			return nil, errors.Join(domain.ErrNotRetryable, zerr.With(domain.ErrToolNotFound, "tool", name))
		}
		executable = lp
	}

	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec // tool commands come from configuration
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Env = cmdEnv
	cmd.WaitDelay = waitDelay

	var stdout bytes.Buffer
	stderr := &logWriter{logger: r.logger, prefix: filepath.Base(name) + ": "}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	_ = stderr.Close()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, zerr.With(zerr.Wrap(ctxErr, domain.ErrToolFailed.Error()), "tool", name)
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, errors.Join(domain.ErrNotRetryable, zerr.With(domain.ErrToolNotFound, "tool", name))
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		failure := zerr.With(zerr.Wrap(err, domain.ErrToolFailed.Error()), "tool", name)
		failure = zerr.With(failure, "exit_code", exitCode)
		if tail := stderr.Tail(); tail != "" {
			failure = zerr.With(failure, "stderr", tail)
		}
		return nil, failure
	}

	return stdout.Bytes(), nil
}

// logWriter forwards complete lines to the logger and remembers the last few.
type logWriter struct {
	logger ports.Logger
	prefix string
	buf    []byte
	tail   []string
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}

		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

// Tail returns the last lines written, joined by newlines.
func (w *logWriter) Tail() string {
	return strings.Join(w.tail, "\n")
}

func (w *logWriter) logLine(line []byte) {
	msg := strings.TrimSuffix(string(line), "\r")
	if strings.TrimSpace(msg) == "" {
		return
	}

	w.logger.Debug(w.prefix + msg)

	w.tail = append(w.tail, msg)
	if len(w.tail) > stderrTailLines {
		w.tail = w.tail[len(w.tail)-stderrTailLines:]
	}
}

// resolveEnvironment applies overlay on top of the system environment. PATH from the
// overlay is prepended to the system PATH.
func resolveEnvironment(sysEnv, overlay []string) []string {
	envMap := make(map[string]string, len(sysEnv))
	order := make([]string, 0, len(sysEnv))
	set := func(k, v string) {
		if _, ok := envMap[k]; !ok {
			order = append(order, k)
		}
		envMap[k] = v
	}

	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			set(k, v)
		}
	}

	for _, entry := range overlay {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if k == "PATH" {
			if sysPath := envMap["PATH"]; sysPath != "" {
				v = v + string(os.PathListSeparator) + sysPath
			}
		}
		set(k, v)
	}

	result := make([]string, 0, len(order))
	for _, k := range order {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}

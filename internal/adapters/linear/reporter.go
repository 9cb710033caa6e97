// Package linear prints line-oriented progress for package resolution.
package linear

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/purl2notices/internal/ui/output"
	"go.trai.ch/purl2notices/internal/ui/style"
)

var _ ports.ProgressReporter = (*Reporter)(nil)

// Reporter implements ports.ProgressReporter. It writes one line per event.
type Reporter struct {
	w      io.Writer
	output *termenv.Output

	mu    sync.Mutex
	tasks map[string]taskState // spanID -> task state
}

type taskState struct {
	name      string
	startTime time.Time
}

// NewReporter creates a Reporter writing to w. A nil writer means stderr.
func NewReporter(w io.Writer) *Reporter {
	out := output.NewWithProfile(w, output.ColorProfileANSI)
	return &Reporter{
		w:      out,
		output: out,
		tasks:  make(map[string]taskState),
	}
}

// OnPlanEmit prints how many packages are about to be resolved.
func (r *Reporter) OnPlanEmit(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.w, "Resolving %d package(s)\n", len(names))
}

// OnTaskStart prints a start line.
func (r *Reporter) OnTaskStart(spanID, _ /* parentID */, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[spanID] = taskState{name: name, startTime: startTime}

	prefix := r.output.String(fmt.Sprintf("[%s]", name)).Faint().String()
	_, _ = fmt.Fprintf(r.w, "%s Resolving...\n", prefix)
}

// OnTaskComplete prints the outcome and duration.
func (r *Reporter) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}
	delete(r.tasks, spanID)

	duration := endTime.Sub(task.startTime)
	prefix := fmt.Sprintf("[%s]", task.name)

	if err != nil {
		symbol := r.output.String(style.Cross).Foreground(termenv.ANSIRed).String()
		_, _ = fmt.Fprintf(r.w, "%s %s Failed after %v: %v\n", prefix, symbol, duration, err)
		return
	}
	symbol := r.output.String(style.Check).Foreground(termenv.ANSIGreen).String()
	_, _ = fmt.Fprintf(r.w, "%s %s Resolved in %v\n", prefix, symbol, duration)
}

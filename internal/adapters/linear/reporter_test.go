package linear_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/purl2notices/internal/adapters/linear"
)

func TestReporter_Lifecycle(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	r := linear.NewReporter(&buf)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.OnPlanEmit([]string{"express@4.18.0", "left-pad@1.3.0"})
	r.OnTaskStart("span1", "", "express@4.18.0", start)
	r.OnTaskStart("span2", "", "left-pad@1.3.0", start)
	r.OnTaskComplete("span1", start.Add(120*time.Millisecond), nil)
	r.OnTaskComplete("span2", start.Add(2*time.Second), errors.New("no source location found"))

	assert.Equal(t, "Resolving 2 package(s)\n"+
		"[express@4.18.0] Resolving...\n"+
		"[left-pad@1.3.0] Resolving...\n"+
		"[express@4.18.0] ✓ Resolved in 120ms\n"+
		"[left-pad@1.3.0] ✗ Failed after 2s: no source location found\n", buf.String())
}

func TestReporter_UnknownSpan(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	r := linear.NewReporter(&buf)

	r.OnTaskComplete("missing", time.Now(), nil)

	assert.Empty(t, buf.String())
}

func TestReporter_CompletesOnce(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	r := linear.NewReporter(&buf)

	start := time.Now()
	r.OnTaskStart("span1", "", "express@4.18.0", start)
	r.OnTaskComplete("span1", start, nil)
	r.OnTaskComplete("span1", start, nil)

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Resolved in")))
}

func TestReporter_Concurrent(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	r := linear.NewReporter(&buf)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i))
			r.OnTaskStart(id, "", id, time.Now())
			r.OnTaskComplete(id, time.Now(), nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, bytes.Count(buf.Bytes(), []byte("Resolved in")))
}

package watcher_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/purl2notices/internal/adapters/watcher"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) record(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, paths)
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func TestDebouncer_CoalescesPaths(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var rec recorder
		d := watcher.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/work/b.json")
		d.Add("/work/a.json")
		d.Add("/work/b.json")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		calls := rec.snapshot()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"/work/a.json", "/work/b.json"}, calls[0])
	})
}

func TestDebouncer_WindowRestartsOnAdd(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var rec recorder
		d := watcher.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/work/cache.json")
		time.Sleep(60 * time.Millisecond)
		d.Add("/work/cache.json")
		time.Sleep(60 * time.Millisecond)
		synctest.Wait()

		assert.Empty(t, rec.snapshot())

		time.Sleep(50 * time.Millisecond)
		synctest.Wait()

		assert.Len(t, rec.snapshot(), 1)
	})
}

func TestDebouncer_SeparateBursts(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var rec recorder
		d := watcher.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/work/cache.json")
		time.Sleep(150 * time.Millisecond)
		d.Add("/work/cache.json")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Len(t, rec.snapshot(), 2)
	})
}

func TestDebouncer_Stop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var rec recorder
		d := watcher.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/work/cache.json")
		d.Stop()

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Empty(t, rec.snapshot())
	})
}

func TestDebouncer_NilCallback(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		d := watcher.NewDebouncer(10*time.Millisecond, nil)
		d.Add("/work/cache.json")
		time.Sleep(20 * time.Millisecond)
		synctest.Wait()
	})
}

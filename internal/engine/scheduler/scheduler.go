// Package scheduler resolves package identifiers with a bounded pool of workers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// MaxBackoff caps the wait between two attempts.
const MaxBackoff = 30 * time.Second

// Options controls one batch.
type Options struct {
	// Parallelism is the maximum number of identifiers resolved at once.
	Parallelism int
	// Timeout bounds a single attempt. Zero means no limit.
	Timeout time.Duration
	// Retries is the number of attempts after the first one.
	Retries int
	// Backoff is the wait before the first retry. It doubles for every further retry.
	Backoff time.Duration
	// GracePeriod is how long in-flight work may continue after the parent context is done.
	GracePeriod time.Duration
	// Strict stops the batch at the first failure.
	Strict bool
}

// Outcome is the result for one identifier.
type Outcome struct {
	Identifier domain.PackageIdentifier
	Package    domain.ResolvedPackage
	// Err is nil when the package was resolved.
	Err      error
	Attempts int
}

// Batch holds one outcome per distinct identifier, in input order.
type Batch struct {
	Outcomes []Outcome
}

// Packages returns the packages of all outcomes, failed ones included.
func (b *Batch) Packages() []domain.ResolvedPackage {
	out := make([]domain.ResolvedPackage, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		out = append(out, o.Package)
	}
	return out
}

// Failed returns the outcomes that did not resolve.
func (b *Batch) Failed() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Scheduler resolves identifiers through the three collaborators.
type Scheduler struct {
	resolver  ports.SourceResolver
	extractor ports.MetadataExtractor
	detector  ports.LicenseDetector
	tracer    ports.Tracer
	logger    ports.Logger
	now       func() time.Time

	inflight singleflight.Group
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	resolver ports.SourceResolver,
	extractor ports.MetadataExtractor,
	detector ports.LicenseDetector,
	tracer ports.Tracer,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		resolver:  resolver,
		extractor: extractor,
		detector:  detector,
		tracer:    tracer,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for resolution timestamps.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

type result struct {
	index   int
	outcome Outcome
}

type runState struct {
	s    *Scheduler
	opts Options
	ids  []domain.PackageIdentifier

	ctx     context.Context //nolint:containedctx // work context shared by all workers of one batch
	cancel  context.CancelFunc
	results chan result

	parentDone <-chan struct{}

	outcomes []Outcome
	next     int
	active   int
	stopped  bool
	errs     error
}

// Resolve resolves ids and returns one outcome per distinct identifier. Failures are
// recorded in the batch. The error is non-nil when a strict batch failed or ctx was
// cancelled; the batch is returned in both cases.
func (s *Scheduler) Resolve(ctx context.Context, ids []domain.PackageIdentifier, opts Options) (*Batch, error) {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	unique := domain.UniqueIdentifiers(ids)

	ctx, span := s.tracer.Start(ctx, "resolve", ports.AsStage())
	defer span.End()

	names := make([]string, len(unique))
	for i, id := range unique {
		names[i] = id.DisplayName()
	}
	s.tracer.EmitPlan(ctx, names)

	// In-flight work outlives ctx by the grace period.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	var graceMu sync.Mutex
	var grace *time.Timer
	stopWatch := context.AfterFunc(ctx, func() {
		graceMu.Lock()
		defer graceMu.Unlock()
		grace = time.AfterFunc(opts.GracePeriod, cancelWork)
	})
	defer func() {
		stopWatch()
		graceMu.Lock()
		if grace != nil {
			grace.Stop()
		}
		graceMu.Unlock()
	}()

	state := &runState{
		s:        s,
		opts:     opts,
		ids:      unique,
		ctx:      workCtx,
		cancel:   cancelWork,
		results:  make(chan result, opts.Parallelism),
		outcomes: make([]Outcome, len(unique)),
	}
	state.run(ctx.Done())

	if err := ctx.Err(); err != nil {
		state.errs = errors.Join(state.errs, err)
	}
	if state.errs != nil {
		span.RecordError(state.errs)
	}
	return &Batch{Outcomes: state.outcomes}, state.errs
}

func (state *runState) run(parentDone <-chan struct{}) {
	state.parentDone = parentDone
	for {
		state.schedule()
		if state.active == 0 {
			break
		}

		select {
		case res := <-state.results:
			state.handleResult(res)
		case <-state.parentDone:
			state.stop()
		}
	}

	// Identifiers never dispatched are recorded as cancelled.
	for i := state.next; i < len(state.ids); i++ {
		id := state.ids[i]
		state.outcomes[i] = Outcome{
			Identifier: id,
			Package:    domain.FailedPackage(id, domain.ErrCancelled, state.s.now()),
			Err:        domain.ErrCancelled,
		}
	}
}

// stop ends dispatching. Tasks already running continue on the work context.
func (state *runState) stop() {
	state.stopped = true
	state.parentDone = nil
}

func (state *runState) schedule() {
	// The work context is detached from the parent, so the parent is checked before dispatch.
	select {
	case <-state.parentDone:
		state.stop()
	default:
	}

	for state.next < len(state.ids) && state.active < state.opts.Parallelism && !state.stopped {
		index := state.next
		state.next++
		state.active++
		go state.execute(index)
	}
}

func (state *runState) execute(index int) {
	id := state.ids[index]

	// The span ends before the result is sent so the reporter sees it first.
	outcome := func() Outcome {
		ctx, span := state.s.tracer.Start(state.ctx, id.DisplayName())
		defer span.End()
		span.SetAttribute("purl", id.Key())

		pkg, attempts, err := state.s.resolveShared(ctx, id, state.opts)
		span.SetAttribute("attempts", attempts)
		if err != nil {
			span.RecordError(err)
			return Outcome{
				Identifier: id,
				Package:    domain.FailedPackage(id, err, state.s.now()),
				Err:        err,
				Attempts:   attempts,
			}
		}
		return Outcome{Identifier: id, Package: pkg, Attempts: attempts}
	}()

	state.results <- result{index: index, outcome: outcome}
}

func (state *runState) handleResult(res result) {
	state.active--
	state.outcomes[res.index] = res.outcome

	if res.outcome.Err == nil {
		return
	}

	key := res.outcome.Identifier.Key()
	state.s.logger.Debug(fmt.Sprintf("%s failed after %d attempt(s)", key, res.outcome.Attempts))

	if state.opts.Strict && !state.stopped {
		state.stopped = true
		state.cancel()
		state.errs = errors.Join(state.errs, errors.Join(domain.ErrBatchFailure,
			zerr.With(zerr.Wrap(res.outcome.Err, domain.ErrResolution.Error()), "purl", key)))
	}
}

type shared struct {
	pkg      domain.ResolvedPackage
	attempts int
}

// resolveShared runs at most one resolution per identifier at a time. Concurrent callers
// for the same identifier share the result.
func (s *Scheduler) resolveShared(
	ctx context.Context,
	id domain.PackageIdentifier,
	opts Options,
) (domain.ResolvedPackage, int, error) {
	v, err, _ := s.inflight.Do(id.Key(), func() (any, error) {
		pkg, n, err := s.resolveWithRetry(ctx, id, opts)
		return shared{pkg: pkg, attempts: n}, err
	})
	res, _ := v.(shared)
	return res.pkg, res.attempts, err
}

func (s *Scheduler) resolveWithRetry(
	ctx context.Context,
	id domain.PackageIdentifier,
	opts Options,
) (domain.ResolvedPackage, int, error) {
	wait := opts.Backoff
	for attempt := 1; ; attempt++ {
		pkg, err := s.attempt(ctx, id, opts.Timeout)
		if err == nil {
			return pkg, attempt, nil
		}
		if attempt > opts.Retries || errors.Is(err, domain.ErrNotRetryable) || ctx.Err() != nil {
			return domain.ResolvedPackage{}, attempt, err
		}

		s.logger.Debug(fmt.Sprintf("retrying %s in %v: %v", id.Key(), wait, err))
		if err := sleep(ctx, wait); err != nil {
			return domain.ResolvedPackage{}, attempt, err
		}
		wait = min(wait*2, MaxBackoff)
	}
}

func (s *Scheduler) attempt(
	ctx context.Context,
	id domain.PackageIdentifier,
	timeout time.Duration,
) (domain.ResolvedPackage, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	loc, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return domain.ResolvedPackage{}, zerr.Wrap(err, "source resolution failed")
	}
	meta, err := s.extractor.Extract(ctx, loc)
	if err != nil {
		return domain.ResolvedPackage{}, zerr.Wrap(err, "metadata extraction failed")
	}
	det, err := s.detector.Detect(ctx, loc)
	if err != nil {
		return domain.ResolvedPackage{}, zerr.Wrap(err, "license detection failed")
	}

	return domain.ComposePackage(id, loc, meta, det, s.now()), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/purl2notices/internal/adapters/telemetry"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/purl2notices/internal/core/ports/mocks"
	"go.trai.ch/purl2notices/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

var fixed = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fixture struct {
	resolver  *mocks.MockSourceResolver
	extractor *mocks.MockMetadataExtractor
	detector  *mocks.MockLicenseDetector
	sched     *scheduler.Scheduler
}

func newFixture(t *testing.T, tracer ports.Tracer) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		resolver:  mocks.NewMockSourceResolver(ctrl),
		extractor: mocks.NewMockMetadataExtractor(ctrl),
		detector:  mocks.NewMockLicenseDetector(ctrl),
	}
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	if tracer == nil {
		tracer = telemetry.NewNoOpTracer()
	}
	f.sched = scheduler.NewScheduler(f.resolver, f.extractor, f.detector, tracer, logger).
		WithClock(func() time.Time { return fixed })
	return f
}

// answerAll makes the extractor and detector succeed for every location.
func (f *fixture) answerAll() {
	f.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		Return(domain.Metadata{DeclaredLicenses: []domain.LicenseFinding{{ID: "MIT"}}}, nil).AnyTimes()
	f.detector.EXPECT().Detect(gomock.Any(), gomock.Any()).
		Return(domain.Detection{Copyrights: []string{"Copyright (c) Authors"}}, nil).AnyTimes()
}

func locate(id domain.PackageIdentifier) domain.SourceLocation {
	return domain.SourceLocation{Identifier: id, DownloadURL: "https://example.test/" + id.Name(), LocalPath: "/tmp/" + id.Name()}
}

func ids(raw ...string) []domain.PackageIdentifier {
	out := make([]domain.PackageIdentifier, len(raw))
	for i, r := range raw {
		out[i] = domain.MustParseIdentifier(r)
	}
	return out
}

func TestScheduler_Resolve(t *testing.T) {
	f := newFixture(t, nil)
	f.answerAll()
	f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error) {
			return locate(id), nil
		}).Times(2)

	batch, err := f.sched.Resolve(context.Background(),
		ids("pkg:npm/express@4.18.0", "pkg:pypi/requests@2.31.0"),
		scheduler.Options{Parallelism: 4})
	require.NoError(t, err)

	require.Len(t, batch.Outcomes, 2)
	assert.Equal(t, "pkg:npm/express@4.18.0", batch.Outcomes[0].Identifier.Key())
	assert.Equal(t, "pkg:pypi/requests@2.31.0", batch.Outcomes[1].Identifier.Key())
	assert.Empty(t, batch.Failed())

	pkgs := batch.Packages()
	require.Len(t, pkgs, 2)
	assert.Equal(t, domain.StatusResolved, pkgs[0].Status)
	assert.Equal(t, []string{"MIT"}, pkgs[0].Licenses)
	assert.Equal(t, []string{"Copyright (c) Authors"}, pkgs[0].Copyrights)
	assert.Equal(t, "https://example.test/express", pkgs[0].SourceURL)
	assert.Equal(t, fixed, pkgs[0].ResolvedAt)
	assert.Equal(t, 1, batch.Outcomes[0].Attempts)
}

func TestScheduler_Resolve_Empty(t *testing.T) {
	f := newFixture(t, nil)

	batch, err := f.sched.Resolve(context.Background(), nil, scheduler.Options{})
	require.NoError(t, err)
	assert.Empty(t, batch.Outcomes)
}

func TestScheduler_Resolve_CollapsesDuplicates(t *testing.T) {
	f := newFixture(t, nil)
	f.answerAll()
	f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error) {
			return locate(id), nil
		}).Times(2)

	batch, err := f.sched.Resolve(context.Background(),
		ids("pkg:npm/b@1.0.0", "pkg:npm/a@1.0.0", "pkg:NPM/B@1.0.0"),
		scheduler.Options{Parallelism: 2})
	require.NoError(t, err)

	require.Len(t, batch.Outcomes, 2)
	assert.Equal(t, "pkg:npm/b@1.0.0", batch.Outcomes[0].Identifier.Key())
	assert.Equal(t, "pkg:npm/a@1.0.0", batch.Outcomes[1].Identifier.Key())
}

func TestScheduler_Resolve_RetriesWithBackoff(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, nil)
		f.answerAll()

		id := domain.MustParseIdentifier("pkg:npm/flaky@1.0.0")
		var calls []time.Duration
		start := time.Now()
		f.resolver.EXPECT().Resolve(gomock.Any(), id).
			DoAndReturn(func(_ context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error) {
				calls = append(calls, time.Since(start))
				if len(calls) < 3 {
					return domain.SourceLocation{}, domain.ErrDownloadFailed
				}
				return locate(id), nil
			}).Times(3)

		batch, err := f.sched.Resolve(context.Background(), []domain.PackageIdentifier{id},
			scheduler.Options{Parallelism: 1, Retries: 2, Backoff: time.Second})
		require.NoError(t, err)

		assert.Equal(t, []time.Duration{0, time.Second, 3 * time.Second}, calls)
		assert.Equal(t, 3, batch.Outcomes[0].Attempts)
		assert.NoError(t, batch.Outcomes[0].Err)
		assert.Equal(t, domain.StatusResolved, batch.Outcomes[0].Package.Status)
	})
}

func TestScheduler_Resolve_BackoffIsCapped(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, nil)

		id := domain.MustParseIdentifier("pkg:npm/down@1.0.0")
		f.resolver.EXPECT().Resolve(gomock.Any(), id).
			Return(domain.SourceLocation{}, domain.ErrDownloadFailed).Times(4)

		start := time.Now()
		batch, err := f.sched.Resolve(context.Background(), []domain.PackageIdentifier{id},
			scheduler.Options{Parallelism: 1, Retries: 3, Backoff: 20 * time.Second})
		require.NoError(t, err)

		// 20s, then 30s twice.
		assert.Equal(t, 80*time.Second, time.Since(start))
		assert.Equal(t, 4, batch.Outcomes[0].Attempts)
	})
}

func TestScheduler_Resolve_FailureIsRecorded(t *testing.T) {
	f := newFixture(t, nil)
	f.answerAll()

	bad := domain.MustParseIdentifier("pkg:npm/ghost@0.0.1")
	good := domain.MustParseIdentifier("pkg:npm/express@4.18.0")
	f.resolver.EXPECT().Resolve(gomock.Any(), bad).
		Return(domain.SourceLocation{}, errors.Join(domain.ErrNotRetryable, domain.ErrNoSourceLocation)).Times(1)
	f.resolver.EXPECT().Resolve(gomock.Any(), good).Return(locate(good), nil)

	batch, err := f.sched.Resolve(context.Background(), []domain.PackageIdentifier{bad, good},
		scheduler.Options{Parallelism: 1, Retries: 2, Backoff: time.Hour})
	require.NoError(t, err)

	failed := batch.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, bad, failed[0].Identifier)
	assert.Equal(t, 1, failed[0].Attempts)
	require.ErrorIs(t, failed[0].Err, domain.ErrNoSourceLocation)
	assert.Equal(t, domain.StatusFailed, failed[0].Package.Status)
	assert.Contains(t, failed[0].Package.Error, domain.ErrNoSourceLocation.Error())
	assert.Equal(t, "ghost", failed[0].Package.Name)

	assert.Equal(t, domain.StatusResolved, batch.Outcomes[1].Package.Status)
}

func TestScheduler_Resolve_CollaboratorStages(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		stage string
	}{
		{
			name: "metadata",
			setup: func(f *fixture) {
				f.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
					Return(domain.Metadata{}, errors.Join(domain.ErrNotRetryable, domain.ErrToolOutputInvalid))
			},
			stage: "metadata",
		},
		{
			name: "licenses",
			setup: func(f *fixture) {
				f.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(domain.Metadata{}, nil)
				f.detector.EXPECT().Detect(gomock.Any(), gomock.Any()).
					Return(domain.Detection{}, errors.Join(domain.ErrNotRetryable, domain.ErrToolFailed))
			},
			stage: "licenses",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			id := domain.MustParseIdentifier("pkg:npm/express@4.18.0")
			f.resolver.EXPECT().Resolve(gomock.Any(), id).Return(locate(id), nil)
			tt.setup(f)

			batch, err := f.sched.Resolve(context.Background(), []domain.PackageIdentifier{id},
				scheduler.Options{Retries: 3})
			require.NoError(t, err)

			require.Len(t, batch.Failed(), 1)
			assert.ErrorIs(t, batch.Outcomes[0].Err, domain.ErrNotRetryable)
			assert.Equal(t, 1, batch.Outcomes[0].Attempts)
		})
	}
}

func TestScheduler_Resolve_Strict(t *testing.T) {
	f := newFixture(t, nil)
	f.answerAll()

	all := ids("pkg:npm/ok@1.0.0", "pkg:npm/broken@1.0.0", "pkg:npm/later@1.0.0", "pkg:npm/last@1.0.0")
	f.resolver.EXPECT().Resolve(gomock.Any(), all[0]).Return(locate(all[0]), nil)
	f.resolver.EXPECT().Resolve(gomock.Any(), all[1]).
		Return(domain.SourceLocation{}, errors.Join(domain.ErrNotRetryable, domain.ErrNoSourceLocation))

	batch, err := f.sched.Resolve(context.Background(), all, scheduler.Options{Parallelism: 1, Strict: true})
	require.ErrorIs(t, err, domain.ErrBatchFailure)
	assert.ErrorContains(t, err, domain.ErrResolution.Error())

	require.Len(t, batch.Outcomes, 4)
	assert.NoError(t, batch.Outcomes[0].Err)
	require.ErrorIs(t, batch.Outcomes[1].Err, domain.ErrNoSourceLocation)
	for _, o := range batch.Outcomes[2:] {
		require.ErrorIs(t, o.Err, domain.ErrCancelled)
		assert.Equal(t, domain.StatusFailed, o.Package.Status)
		assert.Zero(t, o.Attempts)
	}
}

func TestScheduler_Resolve_ConcurrencyBound(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, nil)
		f.answerAll()

		var active, peak atomic.Int32
		f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error) {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Second)
				active.Add(-1)
				return locate(id), nil
			}).Times(10)

		var input []domain.PackageIdentifier
		for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
			input = append(input, domain.MustParseIdentifier("pkg:npm/"+name+"@1.0.0"))
		}

		start := time.Now()
		batch, err := f.sched.Resolve(context.Background(), input, scheduler.Options{Parallelism: 3})
		require.NoError(t, err)

		assert.Equal(t, int32(3), peak.Load())
		assert.Equal(t, 4*time.Second, time.Since(start))
		require.Len(t, batch.Outcomes, 10)
		for i, o := range batch.Outcomes {
			assert.Equal(t, input[i], o.Identifier)
			assert.NoError(t, o.Err)
		}
	})
}

func TestScheduler_Resolve_CancelKeepsInFlightWithinGrace(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, nil)
		f.answerAll()

		f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error) {
				select {
				case <-time.After(2 * time.Second):
					return locate(id), nil
				case <-ctx.Done():
					return domain.SourceLocation{}, ctx.Err()
				}
			}).Times(2)

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(500*time.Millisecond, cancel)

		all := ids("pkg:npm/a@1.0.0", "pkg:npm/b@1.0.0", "pkg:npm/c@1.0.0", "pkg:npm/d@1.0.0")
		batch, err := f.sched.Resolve(ctx, all,
			scheduler.Options{Parallelism: 2, GracePeriod: 5 * time.Second})
		require.ErrorIs(t, err, context.Canceled)

		require.Len(t, batch.Outcomes, 4)
		assert.NoError(t, batch.Outcomes[0].Err)
		assert.NoError(t, batch.Outcomes[1].Err)
		assert.ErrorIs(t, batch.Outcomes[2].Err, domain.ErrCancelled)
		assert.ErrorIs(t, batch.Outcomes[3].Err, domain.ErrCancelled)
	})
}

func TestScheduler_Resolve_CancelledBeforeStart(t *testing.T) {
	// No collaborator expectations: any call fails the test.
	f := newFixture(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := f.sched.Resolve(ctx, ids("pkg:npm/a@1.0.0", "pkg:npm/b@1.0.0", "pkg:npm/c@1.0.0"),
		scheduler.Options{Parallelism: 2, GracePeriod: time.Second})
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, batch.Outcomes, 3)
	for _, o := range batch.Outcomes {
		assert.ErrorIs(t, o.Err, domain.ErrCancelled)
		assert.Zero(t, o.Attempts)
	}
}

func TestScheduler_Resolve_CancelStopsDispatchBetweenResults(t *testing.T) {
	f := newFixture(t, nil)
	f.answerAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error) {
			cancel()
			return locate(id), nil
		}).Times(1)

	batch, err := f.sched.Resolve(ctx, ids("pkg:npm/a@1.0.0", "pkg:npm/b@1.0.0", "pkg:npm/c@1.0.0"),
		scheduler.Options{Parallelism: 1, GracePeriod: time.Second})
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, batch.Outcomes, 3)
	assert.NoError(t, batch.Outcomes[0].Err)
	assert.ErrorIs(t, batch.Outcomes[1].Err, domain.ErrCancelled)
	assert.ErrorIs(t, batch.Outcomes[2].Err, domain.ErrCancelled)
}

func TestScheduler_Resolve_CancelAfterGrace(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, nil)

		f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ domain.PackageIdentifier) (domain.SourceLocation, error) {
				<-ctx.Done()
				return domain.SourceLocation{}, ctx.Err()
			}).Times(1)

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(500*time.Millisecond, cancel)

		start := time.Now()
		batch, err := f.sched.Resolve(ctx, ids("pkg:npm/slow@1.0.0"),
			scheduler.Options{Parallelism: 1, Retries: 2, GracePeriod: time.Second})
		require.ErrorIs(t, err, context.Canceled)

		assert.Equal(t, 1500*time.Millisecond, time.Since(start))
		assert.ErrorIs(t, batch.Outcomes[0].Err, context.Canceled)
		assert.Equal(t, 1, batch.Outcomes[0].Attempts)
	})
}

func TestScheduler_Resolve_AttemptTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, nil)

		f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ domain.PackageIdentifier) (domain.SourceLocation, error) {
				<-ctx.Done()
				return domain.SourceLocation{}, ctx.Err()
			}).Times(2)

		start := time.Now()
		batch, err := f.sched.Resolve(context.Background(), ids("pkg:npm/hang@1.0.0"),
			scheduler.Options{Timeout: time.Second, Retries: 1, Backoff: time.Second})
		require.NoError(t, err)

		assert.Equal(t, 3*time.Second, time.Since(start))
		assert.ErrorIs(t, batch.Outcomes[0].Err, context.DeadlineExceeded)
		assert.Equal(t, 2, batch.Outcomes[0].Attempts)
	})
}

func TestScheduler_Resolve_Spans(t *testing.T) {
	ctrl := gomock.NewController(t)
	tracer := mocks.NewMockTracer(ctrl)
	stage := mocks.NewMockSpan(ctrl)
	task := mocks.NewMockSpan(ctrl)

	gomock.InOrder(
		tracer.EXPECT().Start(gomock.Any(), "resolve", gomock.Len(1)).Return(context.Background(), stage),
		tracer.EXPECT().EmitPlan(gomock.Any(), []string{"ghost@0.0.1"}),
		tracer.EXPECT().Start(gomock.Any(), "ghost@0.0.1").Return(context.Background(), task),
	)
	task.EXPECT().SetAttribute("purl", "pkg:npm/ghost@0.0.1")
	task.EXPECT().SetAttribute("attempts", 1)
	task.EXPECT().RecordError(gomock.Any())
	task.EXPECT().End()
	stage.EXPECT().End()

	f := newFixture(t, tracer)
	f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		Return(domain.SourceLocation{}, errors.Join(domain.ErrNotRetryable, domain.ErrNoSourceLocation))

	_, err := f.sched.Resolve(context.Background(), ids("pkg:npm/ghost@0.0.1"), scheduler.Options{})
	require.NoError(t, err)
}

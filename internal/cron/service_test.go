package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquires int
	ttl      time.Duration
	lost     bool
	extends  int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

func (f *fakeLock) TTL() time.Duration { return f.ttl }

func (f *fakeLock) Extend(context.Context) error {
	f.extends++
	if f.lost {
		return ErrLockLost
	}
	return nil
}

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}})
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	bad := &testJob{name: "fail", err: errors.New("boom")}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Loop:     LoopExpiry,
		Logger:   testLogger(),
		Registry: mustRegistry(t, ok, bad),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if ok.runs != 1 || bad.runs != 1 {
		t.Fatalf("expected both jobs to run once, got success=%d fail=%d", ok.runs, bad.runs)
	}
	if lock.held {
		t.Fatalf("lock not released after cycle")
	}
}

func TestServiceSkipsCycleWhenLockHeldElsewhere(t *testing.T) {
	job := &testJob{name: "settlement"}
	lock := &fakeLock{held: true}
	service, err := NewService(ServiceParams{
		Loop:     LoopSettlement,
		Logger:   testLogger(),
		Registry: mustRegistry(t, job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran without the lock")
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "expiry"}
	service, err := NewService(ServiceParams{
		Loop:     LoopExpiry,
		Logger:   testLogger(),
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the startup cycle to run once, ran %d", job.runs)
	}
}

type slowJob struct {
	testJob
	wait time.Duration
}

func (s *slowJob) Run(ctx context.Context) error {
	s.runs++
	select {
	case <-ctx.Done():
	case <-time.After(s.wait):
	}
	return nil
}

func TestServiceAbandonsCycleWhenLeaseLost(t *testing.T) {
	first := &slowJob{testJob: testJob{name: "settlement"}, wait: time.Second}
	second := &testJob{name: "after"}
	lock := &fakeLock{ttl: 30 * time.Millisecond, lost: true}
	service, err := NewService(ServiceParams{
		Loop:     LoopSettlement,
		Logger:   testLogger(),
		Registry: mustRegistry(t, first, second),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.runCycle(context.Background())
	if !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
	if first.runs != 1 || second.runs != 0 {
		t.Fatalf("expected only the first job to run, got first=%d second=%d", first.runs, second.runs)
	}
	if lock.extends == 0 {
		t.Fatalf("lease was never renewed")
	}
}

func TestNewServiceRequiresLoopName(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: testLogger(), Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected error without loop name")
	}
}

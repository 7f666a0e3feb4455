package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/bgjob/internal/domain"
)

// discardLogger — логгер для тестов.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedInvoker падает failures раз, затем возвращает result.
type scriptedInvoker struct {
	mu       sync.Mutex
	failures int
	result   any
	err      error
	calls    int
	args     [][]any
}

func (s *scriptedInvoker) Invoke(_ context.Context, target, operation string, args []any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.args = append(s.args, args)

	if s.failures < 0 || s.calls <= s.failures {
		err := s.err
		if err == nil {
			err = errors.New("boom")
		}
		return nil, domain.NewJobError(domain.KindInvocationFailed, target, operation, err)
	}
	return s.result, nil
}

func (s *scriptedInvoker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// captureRecorder собирает записи.
type captureRecorder struct {
	mu       sync.Mutex
	attempts []domain.AttemptRecord
	failures []domain.FailureRecord
}

func (c *captureRecorder) RecordAttempt(_ context.Context, rec *domain.AttemptRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, *rec)
}

func (c *captureRecorder) RecordFailure(_ context.Context, rec *domain.FailureRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, *rec)
}

// fakeSleeper запоминает паузы, не ожидая.
type fakeSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (f *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays = append(f.delays, d)
	return f.err
}

// memoryStore — JobStore и AttemptStore в памяти.
type memoryStore struct {
	mu       sync.Mutex
	jobs     map[string]domain.Job
	creates  int
	updates  int
	attempts []domain.AttemptRecord
	err      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: make(map[string]domain.Job)}
}

func (m *memoryStore) Create(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.err != nil {
		return m.err
	}
	m.jobs[job.ID.String()] = *job
	return nil
}

func (m *memoryStore) Update(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.err != nil {
		return m.err
	}
	m.jobs[job.ID.String()] = *job
	return nil
}

func (m *memoryStore) SaveAttempt(_ context.Context, rec *domain.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.attempts = append(m.attempts, *rec)
	return nil
}

func newTestRunner(inv Invoker, rec Recorder, sleeper *fakeSleeper) *Runner {
	return NewRunner(RunnerConfig{
		Invoker:  inv,
		Recorder: rec,
		Sleeper:  sleeper.Sleep,
		Logger:   discardLogger(),
	})
}

package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shaiso/bgjob/internal/config"
	"github.com/shaiso/bgjob/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type dispatchCall struct {
	target    string
	operation string
	args      []any
}

// fakeLauncher запоминает запуски; failTargets завершаются ошибкой.
type fakeLauncher struct {
	mu          sync.Mutex
	calls       []dispatchCall
	failTargets map[string]bool
}

func (f *fakeLauncher) Dispatch(_ context.Context, target, operation string, args []any) (*domain.JobRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{target, operation, args})
	if f.failTargets[target] {
		return nil, errors.New("exec: no such file")
	}
	return domain.NewJobRequest(target, operation, args), nil
}

// countObserver считает итоги запусков.
type countObserver struct {
	ok, failed map[string]int
}

func newCountObserver() *countObserver {
	return &countObserver{ok: map[string]int{}, failed: map[string]int{}}
}

func (c *countObserver) ScheduleDispatched(name string, err error) {
	if err != nil {
		c.failed[name]++
		return
	}
	c.ok[name]++
}

var base = time.Date(2026, 3, 10, 12, 0, 30, 0, time.UTC)

func newTestScheduler(t *testing.T, launcher Launcher, obs Observer, schedules ...config.Schedule) *Scheduler {
	t.Helper()
	s, err := New(Config{
		Schedules: schedules,
		Launcher:  launcher,
		Observer:  obs,
		Logger:    discardLogger(),
	}, base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestCalculateNextDue_Interval(t *testing.T) {
	e, err := NewEntry(config.Schedule{Name: "x", Interval: 90 * time.Second})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}

	next, err := CalculateNextDue(e, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(base.Add(90 * time.Second)) {
		t.Errorf("expected %s, got %s", base.Add(90*time.Second), next)
	}
}

func TestCalculateNextDue_Cron(t *testing.T) {
	e, err := NewEntry(config.Schedule{Name: "x", Cron: "*/5 * * * *"})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}

	next, err := CalculateNextDue(e, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 10, 12, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}
}

func TestCalculateNextDue_CronTimezone(t *testing.T) {
	// 03:00 в Москве (UTC+3) — это 00:00 UTC
	e, err := NewEntry(config.Schedule{Name: "x", Cron: "0 3 * * *", Timezone: "Europe/Moscow"})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}

	next, err := CalculateNextDue(e, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}
	if next.Location() != time.UTC {
		t.Error("next due should be in UTC")
	}
}

func TestNewEntry_Invalid(t *testing.T) {
	if _, err := NewEntry(config.Schedule{Name: "x", Cron: "not a cron"}); err == nil {
		t.Error("expected cron parse error")
	}
	if _, err := NewEntry(config.Schedule{Name: "x", Cron: "* * * * *", Timezone: "Mars/Olympus"}); err == nil {
		t.Error("expected timezone error")
	}

	e, _ := NewEntry(config.Schedule{Name: "x"})
	if _, err := CalculateNextDue(e, base); err == nil {
		t.Error("expected error without cron and interval")
	}
}

func TestScheduler_TickDispatchesDueOnce(t *testing.T) {
	launcher := &fakeLauncher{}
	obs := newCountObserver()
	s := newTestScheduler(t, launcher, obs, config.Schedule{
		Name: "heartbeat", Interval: time.Minute, Target: "http", Operation: "get",
		Args: []any{"http://localhost/healthz"},
	})

	// Ещё рано
	if n := s.Tick(context.Background(), base.Add(30*time.Second)); n != 0 {
		t.Errorf("expected no dispatch before due, got %d", n)
	}

	due := base.Add(time.Minute)
	if n := s.Tick(context.Background(), due); n != 1 {
		t.Fatalf("expected 1 dispatch, got %d", n)
	}
	// Тот же момент повторно — не запускаем второй раз
	if n := s.Tick(context.Background(), due); n != 0 {
		t.Errorf("expected no duplicate dispatch, got %d", n)
	}

	if len(launcher.calls) != 1 {
		t.Fatalf("expected 1 launcher call, got %d", len(launcher.calls))
	}
	call := launcher.calls[0]
	if call.target != "http" || call.operation != "get" || len(call.args) != 1 {
		t.Errorf("unexpected dispatch: %+v", call)
	}
	if obs.ok["heartbeat"] != 1 {
		t.Errorf("observer should see 1 ok dispatch, got %d", obs.ok["heartbeat"])
	}

	entries := s.Entries()
	if !entries[0].NextDue.Equal(due.Add(time.Minute)) {
		t.Errorf("next due should advance to %s, got %s", due.Add(time.Minute), entries[0].NextDue)
	}
	if entries[0].LastJobID == "" {
		t.Error("last job id should be recorded")
	}
}

func TestScheduler_MissedPeriodsNotReplayed(t *testing.T) {
	launcher := &fakeLauncher{}
	s := newTestScheduler(t, launcher, nil, config.Schedule{
		Name: "fast", Interval: time.Second, Target: "echo", Operation: "echo",
	})

	// Пропустили 10 периодов — один запуск
	if n := s.Tick(context.Background(), base.Add(10*time.Second)); n != 1 {
		t.Errorf("expected exactly 1 dispatch, got %d", n)
	}
}

func TestScheduler_ErrorDoesNotBlockOthers(t *testing.T) {
	launcher := &fakeLauncher{failTargets: map[string]bool{"broken": true}}
	obs := newCountObserver()
	s := newTestScheduler(t, launcher, obs,
		config.Schedule{Name: "a", Interval: time.Minute, Target: "broken", Operation: "run"},
		config.Schedule{Name: "b", Interval: time.Minute, Target: "echo", Operation: "echo"},
	)

	if n := s.Tick(context.Background(), base.Add(time.Minute)); n != 1 {
		t.Errorf("expected 1 successful dispatch, got %d", n)
	}
	if len(launcher.calls) != 2 {
		t.Errorf("both schedules should be attempted, got %d calls", len(launcher.calls))
	}
	if obs.failed["a"] != 1 || obs.ok["b"] != 1 {
		t.Errorf("unexpected observer counts: ok=%v failed=%v", obs.ok, obs.failed)
	}

	entries := s.Entries()
	if entries[0].LastError == "" {
		t.Error("failed schedule should record error")
	}
	if !entries[0].NextDue.After(base.Add(time.Minute)) {
		t.Error("failed schedule should still advance")
	}
}

func TestScheduler_DisabledSkipped(t *testing.T) {
	disabled := false
	launcher := &fakeLauncher{}
	s := newTestScheduler(t, launcher, nil,
		config.Schedule{Name: "off", Interval: time.Second, Target: "echo", Operation: "echo", Enabled: &disabled},
	)

	if len(s.Entries()) != 0 {
		t.Fatal("disabled schedule should not be loaded")
	}
	s.Tick(context.Background(), base.Add(time.Hour))
	if len(launcher.calls) != 0 {
		t.Error("disabled schedule must not dispatch")
	}
}

func TestScheduler_NewInvalidSchedule(t *testing.T) {
	_, err := New(Config{
		Schedules: []config.Schedule{{Name: "bad", Cron: "61 * * * *", Target: "echo", Operation: "echo"}},
		Launcher:  &fakeLauncher{},
		Logger:    discardLogger(),
	}, base)
	if err == nil {
		t.Error("expected error for invalid cron")
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s, err := New(Config{
		Launcher:     &fakeLauncher{},
		Logger:       discardLogger(),
		TickInterval: 10 * time.Millisecond,
	}, base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestScheduler_LogsCarryScheduleName(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(Config{
		Schedules: []config.Schedule{
			{Name: "nightly", Interval: time.Minute, Target: "echo", Operation: "echo"},
			{Name: "broken", Interval: time.Minute, Target: "broken", Operation: "run"},
		},
		Launcher: &fakeLauncher{failTargets: map[string]bool{"broken": true}},
		Logger:   slog.New(slog.NewJSONHandler(&buf, nil)),
	}, base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf.Reset()

	s.Tick(context.Background(), base.Add(time.Minute))

	seen := map[string]string{}
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var line map[string]any
		if err := dec.Decode(&line); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		name, _ := line["schedule"].(string)
		seen[line["msg"].(string)] = name
	}

	if seen["scheduled job dispatched"] != "nightly" {
		t.Errorf("dispatch log should carry schedule=nightly, got %q", seen["scheduled job dispatched"])
	}
	if seen["failed to dispatch scheduled job"] != "broken" {
		t.Errorf("failure log should carry schedule=broken, got %q", seen["failed to dispatch scheduled job"])
	}
}

package launcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/shaiso/bgjob/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureStarter запоминает команды без запуска.
type captureStarter struct {
	cmds []*exec.Cmd
	err  error
}

func (c *captureStarter) Start(cmd *exec.Cmd) error {
	c.cmds = append(c.cmds, cmd)
	return c.err
}

func newTestLauncher(t *testing.T, starter *captureStarter, logFile string) *Launcher {
	t.Helper()
	l, err := New(Config{
		Executable: "/usr/local/bin/bgjob",
		LogFile:    logFile,
		Starter:    starter.Start,
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestDispatch_BuildsRunJobArgv(t *testing.T) {
	starter := &captureStarter{}
	l := newTestLauncher(t, starter, "")

	req, err := l.Dispatch(context.Background(), "mailer", "send", []any{"a@b.c", 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(starter.cmds) != 1 {
		t.Fatalf("expected 1 started command, got %d", len(starter.cmds))
	}

	cmd := starter.cmds[0]
	want := []string{"/usr/local/bin/bgjob", "run-job", "--job-id", req.ID.String(), "--", "mailer", "send", `["a@b.c",2]`}
	if len(cmd.Args) != len(want) {
		t.Fatalf("argv = %v, want %v", cmd.Args, want)
	}
	for i := range want {
		if cmd.Args[i] != want[i] {
			t.Errorf("argv[%d] = %q, want %q", i, cmd.Args[i], want[i])
		}
	}

	if cmd.SysProcAttr == nil {
		t.Error("process should be detached")
	}
	if cmd.Stdin != nil {
		t.Error("stdin should not be attached")
	}
}

func TestDispatch_NilArgs(t *testing.T) {
	starter := &captureStarter{}
	l := newTestLauncher(t, starter, "")

	if _, err := l.Dispatch(context.Background(), "echo", "echo", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := starter.cmds[0].Args
	if args[len(args)-1] != "[]" {
		t.Errorf("expected empty JSON array, got %q", args[len(args)-1])
	}
}

func TestDispatch_UnencodableArgs(t *testing.T) {
	starter := &captureStarter{}
	l := newTestLauncher(t, starter, "")

	_, err := l.Dispatch(context.Background(), "echo", "echo", []any{make(chan int)})
	if domain.KindOf(err) != domain.KindMalformedArguments {
		t.Errorf("expected malformed arguments, got %v", err)
	}
	if len(starter.cmds) != 0 {
		t.Error("process must not start")
	}
}

func TestDispatch_ConfigPathForwarded(t *testing.T) {
	starter := &captureStarter{}
	l, err := New(Config{
		Executable: "bgjob",
		ConfigPath: "/etc/bgjob.yaml",
		Starter:    starter.Start,
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := l.Dispatch(context.Background(), "echo", "echo", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := starter.cmds[0].Args
	if args[1] != "--config" || args[2] != "/etc/bgjob.yaml" || args[3] != RunJobCommand {
		t.Errorf("unexpected argv: %v", args)
	}
}

func TestDispatch_LogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "jobs.log")
	starter := &captureStarter{}
	l := newTestLauncher(t, starter, logFile)

	if _, err := l.Dispatch(context.Background(), "echo", "echo", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("log file should be created: %v", err)
	}

	f, ok := starter.cmds[0].Stdout.(*os.File)
	if !ok || f.Name() != logFile {
		t.Errorf("stdout should go to log file, got %v", starter.cmds[0].Stdout)
	}
}

func TestDispatch_StartError(t *testing.T) {
	starter := &captureStarter{err: errors.New("exec format error")}
	l := newTestLauncher(t, starter, "")

	_, err := l.Dispatch(context.Background(), "echo", "echo", nil)
	if err == nil {
		t.Fatal("expected start error")
	}
	if !errors.Is(err, starter.err) {
		t.Errorf("expected wrapped start error, got %v", err)
	}
}

func TestDispatch_CanceledContext(t *testing.T) {
	starter := &captureStarter{}
	l := newTestLauncher(t, starter, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.Dispatch(ctx, "echo", "echo", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(starter.cmds) != 0 {
		t.Error("process must not start")
	}
}

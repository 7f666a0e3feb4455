package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/bgjob/internal/domain"
	"github.com/shaiso/bgjob/internal/registry"
)

func TestInvoker_CallsOperation(t *testing.T) {
	reg := registry.New()
	reg.Register("math", registry.Operations{
		"sum": func(_ context.Context, args []any) (any, error) {
			var total float64
			for _, a := range args {
				total += a.(float64)
			}
			return total, nil
		},
	})

	result, err := NewInvoker(reg).Invoke(context.Background(), "math", "sum", []any{1.0, 2.0, 3.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 6.5 {
		t.Errorf("expected 6.5, got %v", result)
	}
}

func TestInvoker_OperationNotFound(t *testing.T) {
	reg := registry.New()
	reg.Register("math", registry.Operations{})

	_, err := NewInvoker(reg).Invoke(context.Background(), "math", "divide", nil)
	if domain.KindOf(err) != domain.KindOperationNotFound {
		t.Fatalf("expected operation not found, got %v", err)
	}
	if !domain.IsRetryable(err) {
		t.Error("operation not found is retryable")
	}
}

func TestInvoker_TargetNotRegistered(t *testing.T) {
	_, err := NewInvoker(registry.New()).Invoke(context.Background(), "ghost", "run", nil)
	if domain.KindOf(err) != domain.KindTargetNotFound {
		t.Fatalf("expected target not found, got %v", err)
	}
}

func TestInvoker_FactoryError(t *testing.T) {
	reg := registry.New()
	reg.RegisterFactory("db", func() (registry.Operations, error) {
		return nil, errors.New("connection refused")
	})

	_, err := NewInvoker(reg).Invoke(context.Background(), "db", "query", nil)
	if domain.KindOf(err) != domain.KindInvocationFailed {
		t.Fatalf("expected invocation failed, got %v", err)
	}
	if err.Error() != "invocation failed: create target: connection refused" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestInvoker_FactoryCalledPerInvocation(t *testing.T) {
	created := 0
	reg := registry.New()
	reg.RegisterFactory("counter", func() (registry.Operations, error) {
		created++
		return registry.Operations{
			"get": func(context.Context, []any) (any, error) { return created, nil },
		}, nil
	})

	inv := NewInvoker(reg)
	for i := 0; i < 3; i++ {
		if _, err := inv.Invoke(context.Background(), "counter", "get", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 3 {
		t.Errorf("expected 3 instances, got %d", created)
	}
}

func TestInvoker_HandlerError(t *testing.T) {
	reg := registry.New()
	reg.Register("mailer", registry.Operations{
		"send": func(context.Context, []any) (any, error) { return nil, errors.New("smtp down") },
	})

	_, err := NewInvoker(reg).Invoke(context.Background(), "mailer", "send", nil)

	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected JobError, got %T", err)
	}
	if jobErr.Kind != domain.KindInvocationFailed || !jobErr.Retryable {
		t.Errorf("unexpected error: %+v", jobErr)
	}
	if jobErr.Target != "mailer" || jobErr.Operation != "send" {
		t.Errorf("error should carry target and operation: %+v", jobErr)
	}
}

func TestInvoker_PermanentError(t *testing.T) {
	reg := registry.New()
	reg.Register("mailer", registry.Operations{
		"send": func(context.Context, []any) (any, error) {
			return nil, domain.Permanent(errors.New("invalid address"))
		},
	})

	_, err := NewInvoker(reg).Invoke(context.Background(), "mailer", "send", nil)
	if domain.IsRetryable(err) {
		t.Error("permanent error should stay non-retryable")
	}

	var jobErr *domain.JobError
	errors.As(err, &jobErr)
	if jobErr.Target != "mailer" {
		t.Errorf("target should be filled in, got %q", jobErr.Target)
	}
}

func TestInvoker_RecoversPanic(t *testing.T) {
	reg := registry.New()
	reg.Register("buggy", registry.Operations{
		"run": func(_ context.Context, args []any) (any, error) {
			return args[5], nil // index out of range
		},
	})

	result, err := NewInvoker(reg).Invoke(context.Background(), "buggy", "run", nil)
	if result != nil {
		t.Errorf("expected nil result, got %v", result)
	}
	if domain.KindOf(err) != domain.KindInvocationFailed {
		t.Fatalf("expected invocation failed, got %v", err)
	}
	if !domain.IsRetryable(err) {
		t.Error("panic should be retryable")
	}
}

func TestInvoker_ArgsCopied(t *testing.T) {
	reg := registry.New()
	reg.Register("mut", registry.Operations{
		"run": func(_ context.Context, args []any) (any, error) {
			args[0] = "mutated"
			return nil, nil
		},
	})

	args := []any{"original"}
	if _, err := NewInvoker(reg).Invoke(context.Background(), "mut", "run", args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args[0] != "original" {
		t.Error("invoker should pass a copy of args")
	}
}

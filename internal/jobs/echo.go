package jobs

import (
	"context"
	"errors"

	"github.com/shaiso/bgjob/internal/registry"
)

// EchoTarget — target "echo" для проверки конфигурации.
//
// echo возвращает аргументы как есть, fail всегда завершается ошибкой
// (удобно для проверки повторов).
type EchoTarget struct{}

// Operations реализует набор операций target'а.
func (EchoTarget) Operations() registry.Operations {
	return registry.Operations{
		"echo": echo,
		"fail": fail,
	}
}

func echo(_ context.Context, args []any) (any, error) {
	out := make([]any, len(args))
	copy(out, args)
	return out, nil
}

func fail(_ context.Context, args []any) (any, error) {
	msg := "echo: requested failure"
	if s, err := stringArg(args, 0, "message"); err == nil {
		msg = s
	}
	return nil, errors.New(msg)
}

package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/bgjob/internal/domain"
	"github.com/shaiso/bgjob/internal/registry"
)

// Invoker — интерфейс для вызова операции target'а.
//
// Возвращает результат операции или *domain.JobError. Повторов внутри нет —
// за retry отвечает Runner.
type Invoker interface {
	Invoke(ctx context.Context, target, operation string, args []any) (any, error)
}

// InvokerFunc — адаптер функции к Invoker.
type InvokerFunc func(ctx context.Context, target, operation string, args []any) (any, error)

// Invoke реализует Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, target, operation string, args []any) (any, error) {
	return f(ctx, target, operation, args)
}

// RegistryInvoker вызывает операции, зарегистрированные в registry.Registry.
type RegistryInvoker struct {
	registry *registry.Registry
}

// NewInvoker создаёт RegistryInvoker.
func NewInvoker(reg *registry.Registry) *RegistryInvoker {
	return &RegistryInvoker{registry: reg}
}

// Invoke создаёт экземпляр target'а, находит операцию и вызывает её с args по порядку.
//
// Ошибка Factory, ошибка операции и panic внутри операции возвращаются
// одной ошибкой вида KindInvocationFailed. Отсутствующая операция — KindOperationNotFound.
func (i *RegistryInvoker) Invoke(ctx context.Context, target, operation string, args []any) (result any, err error) {
	factory, ok := i.registry.Lookup(target)
	if !ok {
		return nil, domain.NewJobError(domain.KindTargetNotFound, target, operation, nil)
	}

	// panic в target'е — такой же сбой вызова, как и ошибка
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = domain.NewJobError(domain.KindInvocationFailed, target, operation, fmt.Errorf("panic: %v", rec))
		}
	}()

	ops, err := factory()
	if err != nil {
		return nil, domain.NewJobError(domain.KindInvocationFailed, target, operation, fmt.Errorf("create target: %w", err))
	}

	handler, ok := ops[operation]
	if !ok || handler == nil {
		return nil, domain.NewJobError(domain.KindOperationNotFound, target, operation, nil)
	}

	// Копия аргументов: операция не должна менять JobRequest
	callArgs := make([]any, len(args))
	copy(callArgs, args)

	result, err = handler(ctx, callArgs)
	if err != nil {
		return nil, classify(target, operation, err)
	}
	return result, nil
}

// classify оборачивает ошибку операции в JobError.
// Если операция уже вернула JobError (например, domain.Permanent), её признак Retryable сохраняется.
func classify(target, operation string, err error) error {
	var jobErr *domain.JobError
	if errors.As(err, &jobErr) {
		if jobErr.Target == "" {
			jobErr.Target = target
		}
		if jobErr.Operation == "" {
			jobErr.Operation = operation
		}
		return jobErr
	}
	return domain.NewJobError(domain.KindInvocationFailed, target, operation, err)
}

package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler — операция target'а. Получает позиционные аргументы в исходном порядке.
type Handler func(ctx context.Context, args []any) (any, error)

// Operations — экземпляр target'а: имя операции → Handler.
type Operations map[string]Handler

// Names возвращает отсортированный список операций.
func (o Operations) Names() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Factory создаёт экземпляр target'а. Вызывается на каждую попытку.
type Factory func() (Operations, error)

// Registry — реестр targets.
//
// Потокобезопасен.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]Factory
}

// New создаёт пустой реестр.
func New() *Registry {
	return &Registry{
		targets: make(map[string]Factory),
	}
}

// Register регистрирует target с фиксированным набором операций.
func (r *Registry) Register(target string, ops Operations) {
	r.RegisterFactory(target, func() (Operations, error) {
		return ops, nil
	})
}

// RegisterFactory регистрирует target с Factory.
// Если target уже существует, он будет перезаписан.
func (r *Registry) RegisterFactory(target string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[target] = factory
}

// Lookup возвращает Factory target'а.
func (r *Registry) Lookup(target string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.targets[target]
	return factory, ok
}

// Has проверяет, зарегистрирован ли target.
func (r *Registry) Has(target string) bool {
	_, ok := r.Lookup(target)
	return ok
}

// Targets возвращает отсортированный список зарегистрированных targets.
func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]string, 0, len(r.targets))
	for t := range r.targets {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Describe создаёт экземпляр target'а и возвращает список его операций.
// Используется командой targets; при выполнении job не вызывается.
func (r *Registry) Describe(target string) ([]string, error) {
	factory, ok := r.Lookup(target)
	if !ok {
		return nil, fmt.Errorf("target %q is not registered", target)
	}
	ops, err := factory()
	if err != nil {
		return nil, fmt.Errorf("create target %q: %w", target, err)
	}
	return ops.Names(), nil
}

// Count возвращает количество зарегистрированных targets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

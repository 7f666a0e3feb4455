package registry

import (
	"sort"
	"strings"

	"github.com/shaiso/bgjob/internal/domain"
)

// DefaultForbiddenOperations — операции жизненного цикла, которые нельзя вызвать ни у одного target'а.
var DefaultForbiddenOperations = []string{"New", "Init", "Close", "Call", "Invoke"}

// AllowList — множество разрешённых targets. После создания только читается.
type AllowList struct {
	targets map[string]struct{}
}

// NewAllowList создаёт AllowList. Идентификаторы проходят Sanitize, пустые пропускаются.
func NewAllowList(targets []string) *AllowList {
	a := &AllowList{targets: make(map[string]struct{}, len(targets))}
	for _, t := range targets {
		if t = Sanitize(t); t != "" {
			a.targets[t] = struct{}{}
		}
	}
	return a
}

// Contains проверяет, разрешён ли target.
func (a *AllowList) Contains(target string) bool {
	_, ok := a.targets[target]
	return ok
}

// Targets возвращает отсортированный список разрешённых targets.
func (a *AllowList) Targets() []string {
	targets := make([]string, 0, len(a.targets))
	for t := range a.targets {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Len возвращает количество разрешённых targets.
func (a *AllowList) Len() int {
	return len(a.targets)
}

// Validator проверяет запросы перед выполнением.
type Validator struct {
	allow     *AllowList
	registry  *Registry
	forbidden map[string]struct{}
}

// NewValidator создаёт Validator.
//
// extraForbidden дополняет DefaultForbiddenOperations; убрать операции
// по умолчанию нельзя. Сравнение операций без учёта регистра.
func NewValidator(allow *AllowList, reg *Registry, extraForbidden ...string) *Validator {
	forbidden := make(map[string]struct{}, len(DefaultForbiddenOperations)+len(extraForbidden))
	for _, op := range DefaultForbiddenOperations {
		forbidden[strings.ToLower(op)] = struct{}{}
	}
	for _, op := range extraForbidden {
		if op = Sanitize(op); op != "" {
			forbidden[strings.ToLower(op)] = struct{}{}
		}
	}

	if allow == nil {
		allow = NewAllowList(nil)
	}

	return &Validator{
		allow:     allow,
		registry:  reg,
		forbidden: forbidden,
	}
}

// Validate проверяет target и операцию.
//
// Все проверки выполняются до создания экземпляра target'а. Возвращает
// *domain.JobError с видом KindUnauthorizedTarget, KindTargetNotFound
// или KindForbiddenOperation.
func (v *Validator) Validate(target, operation string) error {
	target = Sanitize(target)
	operation = Sanitize(operation)

	if target == "" || !v.allow.Contains(target) {
		return domain.NewJobError(domain.KindUnauthorizedTarget, target, operation, nil)
	}

	if v.registry == nil || !v.registry.Has(target) {
		return domain.NewJobError(domain.KindTargetNotFound, target, operation, nil)
	}

	if operation == "" || v.IsForbidden(operation) {
		return domain.NewJobError(domain.KindForbiddenOperation, target, operation, nil)
	}

	return nil
}

// IsForbidden проверяет, входит ли операция в список запрещённых.
func (v *Validator) IsForbidden(operation string) bool {
	_, ok := v.forbidden[strings.ToLower(Sanitize(operation))]
	return ok
}

// AllowList возвращает AllowList валидатора.
func (v *Validator) AllowList() *AllowList {
	return v.allow
}

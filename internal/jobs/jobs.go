// Package jobs содержит встроенные target'ы bgjob.
//
// Target'ы регистрируются в registry при старте процесса. В allow-list
// их нужно добавить явно.
package jobs

import (
	"fmt"

	"github.com/shaiso/bgjob/internal/domain"
	"github.com/shaiso/bgjob/internal/registry"
)

// Встроенные target'ы.
const (
	TargetHTTP  = "http"
	TargetDelay = "delay"
	TargetEcho  = "echo"
)

// Register регистрирует встроенные target'ы.
//
// Factory создаёт новый набор операций на каждый вызов.
func Register(reg *registry.Registry) {
	reg.RegisterFactory(TargetHTTP, func() (registry.Operations, error) {
		return (&HTTPTarget{}).Operations(), nil
	})
	reg.RegisterFactory(TargetDelay, func() (registry.Operations, error) {
		return DelayTarget{}.Operations(), nil
	})
	reg.RegisterFactory(TargetEcho, func() (registry.Operations, error) {
		return EchoTarget{}.Operations(), nil
	})
}

// stringArg извлекает обязательный строковый аргумент.
// Отсутствие или неверный тип — не повторяемая ошибка.
func stringArg(args []any, i int, name string) (string, error) {
	if i >= len(args) {
		return "", domain.Permanent(fmt.Errorf("argument %d (%s) is required", i, name))
	}
	s, ok := args[i].(string)
	if !ok || s == "" {
		return "", domain.Permanent(fmt.Errorf("argument %d (%s) must be a non-empty string", i, name))
	}
	return s, nil
}

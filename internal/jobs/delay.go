package jobs

import (
	"context"
	"time"

	"github.com/shaiso/bgjob/internal/registry"
)

// DelayTarget — target "delay".
//
// Операция sleep(seconds) ожидает указанное количество секунд (default: 1).
// Поддерживает отмену через context.
type DelayTarget struct{}

// Operations реализует набор операций target'а.
func (DelayTarget) Operations() registry.Operations {
	return registry.Operations{"sleep": sleep}
}

func sleep(ctx context.Context, args []any) (any, error) {
	seconds := 1.0
	if len(args) > 0 {
		if v, ok := args[0].(float64); ok && v > 0 {
			seconds = v
		}
	}

	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return map[string]any{"delayed_sec": seconds}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// bgjob — запуск операций зарегистрированных target'ов в фоновых процессах.
//
// Использование:
//
//	bgjob [--config FILE] [--json] <command> [args]
//
// Команды:
//
//	dispatch  Запустить job в фоне
//	run-job   Выполнить job в текущем процессе (с повторами)
//	targets   Показать target'ы и их операции
//	jobs      История job (PostgreSQL)
//	events    События job (RabbitMQ)
//	schedule  Запуск job по расписанию
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/bgjob/internal/cli"
	"github.com/shaiso/bgjob/internal/jobs"
	"github.com/shaiso/bgjob/internal/registry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := registry.New()
	jobs.Register(reg)

	env := &cli.Env{Registry: reg}
	root := cli.NewRootCmd(env, version)

	err := root.ExecuteContext(ctx)
	cancel()
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

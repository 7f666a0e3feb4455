// Package worker выполняет job: вызов операции target'а с ограниченным числом повторов.
//
// # Обзор
//
// Пакет — ядро процесса run-job, который launcher запускает в фоне.
// Процесс выполняет ровно один job и завершается.
//
//	JSON args → Dispatcher → Validator → Runner ⟲ Invoker → Handler
//
// # Ключевые компоненты
//
// ## Invoker
//
// Создаёт экземпляр target'а через registry.Factory, находит операцию
// и вызывает её с позиционными аргументами:
//
//	type Invoker interface {
//	    Invoke(ctx context.Context, target, operation string, args []any) (any, error)
//	}
//
// Любая ошибка (Factory, операция, panic) возвращается как *domain.JobError.
//
// ## Runner
//
// Цикл попыток. Попытка n (с 1):
//   - успех → запись в Recorder, результат возвращается сразу
//   - ошибка, n <= MaxRetries → запись, пауза RetryDelay, попытка n+1
//   - ошибка, n > MaxRetries → запись, финальная FailureRecord, KindRetriesExhausted
//
// Решение о повторе принимается только по JobError.Retryable.
// Пауза — Sleeper (по умолчанию SleepContext), в тестах подменяется.
//
// ## Recorder
//
// Получатели записей о попытках: LogRecorder (slog), StoreRecorder (PostgreSQL),
// telemetry.MetricsRecorder (Prometheus), mq.EventRecorder (RabbitMQ).
// Объединяются через MultiRecorder.
//
// ## Dispatcher
//
// Граница ядра: декодирует JSON-аргументы (KindMalformedArguments при ошибке),
// вызывает Validator до любой попытки и сохраняет итог job в JobStore.
//
// # Ошибки
//
// Ошибки валидации и некорректные аргументы не повторяются и пишутся в лог один раз.
// Ошибки вызова повторяются в пределах бюджета; наружу уходит только итоговая ошибка.
package worker

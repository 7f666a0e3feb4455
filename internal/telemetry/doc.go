// Package telemetry обеспечивает наблюдаемость bgjob.
//
// Включает:
//   - logging.go — structured logging через slog (json, text, pretty)
//   - metrics.go — Prometheus метрики выполнения job
//
// Короткоживущий процесс run-job отправляет метрики в Pushgateway,
// демон schedule отдаёт их на /metrics.
package telemetry

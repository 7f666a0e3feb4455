// Package mq публикует события job в RabbitMQ и читает их.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange, queues, bindings
//   - publisher.go  — публикация событий
//   - recorder.go   — EventRecorder: попытки и итоги job как события
//   - consumer.go   — потребление событий (команда events)
//
// Типы сообщений:
//   - job.attempt    — завершена одна попытка
//   - job.succeeded  — job выполнен
//   - job.failed     — job завершился неудачей
//
// RabbitMQ здесь только канал событий: очереди заданий нет,
// job запускается отдельным процессом.
package mq

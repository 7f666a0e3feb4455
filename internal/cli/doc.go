// Package cli реализует команды bgjob.
//
// # Обзор
//
// Один бинарник bgjob и запускает job в фоне, и выполняет их.
// Команда dispatch проверяет запрос и стартует отдельный процесс
// `bgjob run-job`, который и выполняет операцию с повторами.
//
// # Ключевые компоненты
//
// ## Env
//
// Общее окружение команд: путь к конфигурации, режим вывода, registry
// target'ов. Конфигурация и логгер создаются лениво, после парсинга
// PersistentFlags.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: bgjob jobs list --json | jq .
//
// ## Commands
//
//   - run-job: выполнить job в текущем процессе
//   - dispatch: запустить job в фоне
//   - targets: список target'ов и их операций
//   - jobs: list, show, migrate (история в PostgreSQL)
//   - events: события job из RabbitMQ
//   - schedule: list и run (демон планировщика с /healthz, /metrics, /schedules)
//
// Каждая команда создаётся фабричной функцией (NewRunJobCmd и т.д.),
// принимающей *Env.
package cli

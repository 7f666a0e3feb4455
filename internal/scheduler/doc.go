// Package scheduler запускает job по расписанию.
//
// Расписания берутся из конфигурации (cron или interval). Scheduler
// раз в тик проверяет, какие расписания наступили, и запускает для них
// фоновый процесс через Launcher.
//
// Структура:
//   - scheduler.go — Scheduler (Tick, Run)
//   - entry.go     — Entry: расписание и его состояние
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Schedules: cfg.Schedules,
//	    Launcher:  launcher,
//	    Observer:  metrics, // опционально
//	    Logger:    logger,
//	}, time.Now())
//
//	go sched.Run(ctx)
//
// Scheduler работает в одном процессе: распределённого запуска нет.
package scheduler

package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений (5 полей, без секунд).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CalculateNextDue вычисляет следующее время запуска entry после from.
//
// Cron считается в timezone entry, интервал просто добавляется к from.
func CalculateNextDue(e *Entry, from time.Time) (time.Time, error) {
	if e.schedule != nil {
		return e.schedule.Next(from.In(e.location)).UTC(), nil
	}

	if e.Interval > 0 {
		return from.Add(e.Interval).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("schedule %q has neither cron nor interval", e.Name)
}

// loadLocation загружает timezone; пустая строка — UTC.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

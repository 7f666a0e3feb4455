package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/bgjob/internal/config"
)

// Entry — расписание с вычисленным временем следующего запуска.
type Entry struct {
	Name      string
	Cron      string
	Interval  time.Duration
	Target    string
	Operation string
	Args      []any

	location *time.Location
	schedule cron.Schedule

	// NextDue — следующее время запуска (UTC).
	NextDue time.Time

	// LastDispatch, LastJobID, LastError — итог последнего запуска.
	LastDispatch time.Time
	LastJobID    string
	LastError    string
}

// NewEntry создаёт Entry из конфигурации.
func NewEntry(s config.Schedule) (*Entry, error) {
	loc, err := loadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", s.Name, err)
	}

	e := &Entry{
		Name:      s.Name,
		Cron:      s.Cron,
		Interval:  s.Interval,
		Target:    s.Target,
		Operation: s.Operation,
		Args:      s.Args,
		location:  loc,
	}

	if s.Cron != "" {
		sched, err := cronParser.Parse(s.Cron)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: invalid cron expression %q: %w", s.Name, s.Cron, err)
		}
		e.schedule = sched
	}

	return e, nil
}

// IsDue возвращает true, если пора запускать.
func (e *Entry) IsDue(now time.Time) bool {
	return !e.NextDue.IsZero() && !now.Before(e.NextDue)
}

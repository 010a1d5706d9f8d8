// Package icron answers "when does this cron expression fire" questions
// that the cron library itself does not expose, such as the most recent
// trigger before a reference time.
package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerInfo describes the triggers of a cron expression around a
// reference time. Last is the zero time when no trigger occurred within
// the past year.
type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// GetTriggerInfo parses a standard five-field cron expression (or a
// descriptor like @daily) and reports the triggers on either side of
// refTime.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour |
		cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       schedule.Next(refTime),
		Last:       previousTrigger(schedule, refTime),
	}

	if !info.Last.IsZero() {
		info.TimeSinceLast = refTime.Sub(info.Last)
	}
	info.TimeUntilNext = info.Next.Sub(refTime)

	return info, nil
}

// previousTrigger finds the last trigger at or before ref. Schedules only
// expose Next, so it probes backwards in growing steps until a trigger
// lands inside the probe window, then walks forward to the latest one.
// Gives up after a year.
func previousTrigger(schedule cron.Schedule, ref time.Time) time.Time {
	probe := ref.Add(-time.Minute)
	for range 366 * 24 {
		if t := schedule.Next(probe); !t.After(ref) {
			for {
				next := schedule.Next(t)
				if next.After(ref) {
					return t
				}
				t = next
			}
		}
		probe = probe.Add(-time.Hour)
	}
	return time.Time{}
}

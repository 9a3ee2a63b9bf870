package digest

import (
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration returns the duration from now until the schedule next
// fires. Returns 0 when the schedule never fires again.
func nextCronDuration(sched cron.Schedule, now time.Time) time.Duration {
	next := sched.Next(now)
	if next.IsZero() {
		return 0
	}
	d := next.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

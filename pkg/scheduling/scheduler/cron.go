package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// newParser accepts five-field expressions, an optional leading seconds
// field and descriptors:
//
//	"0 */2 * * *"     every 2 hours
//	"*/30 * * * * *"  every 30 seconds
//	"@hourly"         every hour
//	"@every 90s"      every 90 seconds
func newParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// ParseSpec validates a cron expression without scheduling it.
func ParseSpec(spec string) error {
	if _, err := newParser().Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// NextRuns returns the next n firing times of spec after from.
func NextRuns(spec string, from time.Time, n int) ([]time.Time, error) {
	schedule, err := newParser().Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	runs := make([]time.Time, 0, n)
	current := from
	for i := 0; i < n; i++ {
		current = schedule.Next(current)
		runs = append(runs, current)
	}
	return runs, nil
}

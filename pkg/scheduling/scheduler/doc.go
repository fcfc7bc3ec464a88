// Package scheduler runs named jobs on cron expressions or fixed intervals.
//
// Jobs are driven by a timer.Scheduler, so tests can use timer.Virtual and step
// time explicitly instead of sleeping.
//
// Basic Usage:
//
//	s := scheduler.New(scheduler.Config{Logger: logger, Metrics: metrics.DefaultRegistry})
//	defer func() { <-s.Stop() }()
//
//	s.ScheduleCron("sales-report", "@every 5m", scheduler.JobFunc(func(ctx context.Context) error {
//		return reporter.Run(ctx)
//	}))
//
//	if err := s.Start(ctx); err != nil {
//		return err
//	}
//
// Cron Expressions:
//
// Five-field expressions, six-field expressions with a leading seconds field
// and descriptors are accepted:
//
//	"0 */2 * * *"      every 2 hours
//	"30 14 * * 1-5"    2:30 PM on weekdays
//	"*/10 * * * * *"   every 10 seconds
//	"@daily"           every day at midnight
//	"@every 30s"       every 30 seconds
//
// ParseSpec validates an expression and NextRuns previews its firing times.
//
// Overlapping Runs:
//
// Each job runs on its own goroutine. If a job is still running when its next
// firing comes due, that firing is skipped, logged and counted in the
// jobs_skipped outcome of the job metrics.
//
// Lifecycle:
//
// Start arms every job; jobs added later are armed immediately. Stop disarms
// all jobs, cancels the context passed to running jobs and returns a channel
// that is closed when they have all returned.
package scheduler

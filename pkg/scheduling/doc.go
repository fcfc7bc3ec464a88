/*
Package scheduling groups the time-related building blocks of reactflow.

  - timer: an injectable time source for delayed and periodic stream
    operators, with a deterministic Virtual implementation for tests
  - scheduler: named cron and interval jobs, such as the periodic sales
    report published by salesd

Time Sources:

Stream operators that wait (DelayedSequence, Interval, DelayElements,
BufferTime, SkipFor) take a timer.Scheduler:

	sched := timer.System()
	ticks := stream.Interval(time.Second, sched)

In tests, a Virtual scheduler replaces wall-clock waits:

	v := timer.NewVirtual(time.Unix(0, 0))
	sub := stream.DelayedSequence([]int{1, 2, 3}, time.Second, v).Subscribe(ctx, rec)
	v.Advance(3500 * time.Millisecond)
	sub.Cancel()

Jobs:

	s := scheduler.New(scheduler.Config{Timer: sched, Logger: logger})
	s.ScheduleCron("report", "@every 1m", scheduler.JobFunc(report))
	s.Start(ctx)
	defer func() { <-s.Stop() }()
*/
package scheduling

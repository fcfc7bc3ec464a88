/*
Package timer provides the injectable time source used by delayed, windowed and
cron-driven components.

Two implementations are provided:

  - System / FromClock: real time, backed by github.com/benbjohnson/clock
  - Virtual: deterministic virtual time for tests and simulations

Virtual time never moves on its own:

	v := timer.NewVirtual(time.Time{})
	v.AfterFunc(time.Second, func() { fmt.Println("tick") })
	v.Advance(time.Second) // prints "tick" on this goroutine

Stopping a timer releases it; Pending reports how many timers are still live,
which lets tests assert that a cancelled subscription left nothing behind.
*/
package timer

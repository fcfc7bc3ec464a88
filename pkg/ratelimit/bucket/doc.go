// Package bucket provides a token bucket rate limiter.
//
// The bucket holds up to Burst tokens and refills at Rate tokens per second.
// Allow consumes a token without blocking; Wait blocks until one is
// available. salesd uses it to shed HTTP load with 429 responses:
//
//	limiter, err := bucket.New(100, 200) // 100 req/s, bursts of 200
//	if !limiter.Allow() {
//		w.Header().Set("Retry-After", ...)
//	}
//
// Time comes from a timer.Scheduler, so tests can drive refills with
// timer.Virtual.
package bucket

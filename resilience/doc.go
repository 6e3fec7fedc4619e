// Package resilience provides the fault-tolerance primitives used around
// external calls.
//
//   - Retry: retries idempotent operations with exponential backoff
//   - CircuitBreaker: fails fast while a provider keeps failing
//   - Bulkhead: bounds how many calls run at once
//
// Combined around an outbound call:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("speech"))
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "ffmpeg", MaxConcurrent: 4})
//
//	err := cb.Execute(func() error {
//	    return bh.Execute(ctx, func() error { return call(ctx) })
//	})
package resilience

// Package circuitbreaker implements the per-provider failure gate used by the
// routing engine.
//
// A Breaker starts Closed. It opens after FailureThreshold consecutive
// failures, blocks traffic for OpenDuration, then moves to HalfOpen and
// admits exactly one trial request. A successful trial closes the breaker;
// a failed one reopens it and restarts the open timer.
//
// Admission and outcome reporting are split:
//
//	adm, err := b.Allow()
//	if err != nil {
//	    // breaker open, or the half-open trial is already in flight
//	}
//	resp, err := provider.Complete(ctx, req)
//	adm.Done(err == nil)
//
// An admission whose request was abandoned by the caller is settled with
// Release, which leaves the failure count untouched. Transitions are
// linearizable across goroutines: concurrent failures cannot skip HalfOpen
// and two callers can never both hold the half-open trial.
package circuitbreaker

// Package resilience holds the upstream reconnection policy.
//
// ReconnectPolicy maps a count of consecutive failures to a delay:
//
//	policy := resilience.NewReconnectPolicy(resilience.ReconnectConfig{
//	    InitialDelay: time.Second,
//	    MaxDelay:     30 * time.Second,
//	    Multiplier:   2,
//	    MaxAttempts:  0, // unlimited
//	})
//	delay, ok := policy.Next(failures)
//
// Delays are deterministic (no jitter) so they never decrease as failures
// accumulate.
//
// Bulkhead bounds concurrent work; the relay uses it to cap open
// subscriber streams.
package resilience

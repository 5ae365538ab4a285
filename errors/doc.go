// Package errors provides unified error handling for the relay.
//
// Three relay-specific codes map the failure taxonomy:
//
//   - UPSTREAM_CONNECT_FAILED: the upstream feed could not be reached or dropped.
//     Recovered by the reconnection policy.
//   - SUBSCRIBER_DELIVERY_FAILED: one subscriber could not take a payload.
//     Recovered by unregistering that subscriber.
//   - REGISTRY_INVARIANT_VIOLATION: the offending registry operation is aborted.
package errors

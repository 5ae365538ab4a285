package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Relay errors
const (
	// ErrCodeUpstreamConnect indicates the upstream feed could not be reached or dropped.
	ErrCodeUpstreamConnect ErrorCode = "UPSTREAM_CONNECT_FAILED"
	// ErrCodeSubscriberDelivery indicates a payload could not be handed to one subscriber.
	ErrCodeSubscriberDelivery ErrorCode = "SUBSCRIBER_DELIVERY_FAILED"
	// ErrCodeRegistryInvariant indicates an operation would have corrupted the subscriber registry.
	ErrCodeRegistryInvariant ErrorCode = "REGISTRY_INVARIANT_VIOLATION"
)

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates a client opened streams too quickly.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeUpstreamConnect:    true,
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeSubscriberDelivery: false,
	ErrCodeRegistryInvariant:  false,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

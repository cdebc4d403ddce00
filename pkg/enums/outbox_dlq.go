package enums

// OutboxDLQErrorReason maps to the error_reason column of outbox_dlq.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonUnresolvable marks events the registry could not map to a
	// topic or whose payload failed to decode.
	OutboxDLQReasonUnresolvable OutboxDLQErrorReason = "unresolvable"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonUnresolvable,
	OutboxDLQReasonNonRetryable,
	OutboxDLQReasonMaxAttempts,
}

func (r OutboxDLQErrorReason) IsValid() bool {
	return member(validOutboxDLQErrorReasons, r)
}

// ParseOutboxDLQErrorReason converts raw input into OutboxDLQErrorReason.
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	return parse(validOutboxDLQErrorReasons, "dead letter reason", value)
}

package enums

// OutboxEventType enumerates the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventPropertyRegistered OutboxEventType = "distribution.property_registered"
	EventDeposited          OutboxEventType = "distribution.deposited"
	EventRoundFinalized     OutboxEventType = "distribution.round_finalized"
	EventClaimed            OutboxEventType = "distribution.claimed"
	EventRoundClosed        OutboxEventType = "distribution.round_closed"
	EventRoleChanged        OutboxEventType = "distribution.role_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPropertyRegistered,
	EventDeposited,
	EventRoundFinalized,
	EventClaimed,
	EventRoundClosed,
	EventRoleChanged,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateProperty OutboxAggregateType = "property"
	AggregateRound    OutboxAggregateType = "round"
)

// OutboxDLQErrorReason classifies terminal outbox failures.
type OutboxDLQErrorReason string

const (
	DLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts_exceeded"
	DLQReasonUnresolvable OutboxDLQErrorReason = "unresolvable_event"
)

package enums

import "fmt"

// RoundState maps to the round_state_enum enum in Postgres.
type RoundState string

const (
	RoundStateEmpty     RoundState = "empty"
	RoundStateFunded    RoundState = "funded"
	RoundStateFinalized RoundState = "finalized"
	RoundStateClosed    RoundState = "closed"
)

var validRoundStates = []RoundState{
	RoundStateEmpty,
	RoundStateFunded,
	RoundStateFinalized,
	RoundStateClosed,
}

// String implements fmt.Stringer.
func (s RoundState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RoundState.
func (s RoundState) IsValid() bool {
	for _, candidate := range validRoundStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the round can still accept deposits.
func (s RoundState) IsOpen() bool {
	return s == RoundStateEmpty || s == RoundStateFunded
}

// ParseRoundState converts raw input into a RoundState.
func ParseRoundState(value string) (RoundState, error) {
	for _, candidate := range validRoundStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid round state %q", value)
}

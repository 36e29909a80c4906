package enums

import "fmt"

// DustPolicy controls what happens to the integer-division remainder left in a
// round after entitlements are computed.
type DustPolicy string

const (
	// DustPolicyCarryForward folds the remainder into the next round's pool.
	DustPolicyCarryForward DustPolicy = "carry_forward"
	// DustPolicySweep pays the remainder to treasury when the round is closed.
	DustPolicySweep DustPolicy = "sweep"
)

var validDustPolicies = []DustPolicy{
	DustPolicyCarryForward,
	DustPolicySweep,
}

// IsValid reports whether the value is a known DustPolicy.
func (p DustPolicy) IsValid() bool {
	for _, candidate := range validDustPolicies {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseDustPolicy converts raw input into a DustPolicy.
func ParseDustPolicy(value string) (DustPolicy, error) {
	for _, candidate := range validDustPolicies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dust policy %q", value)
}

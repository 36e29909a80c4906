package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Address is a 20-byte ledger address in 0x-prefixed hex form, stored
// normalized to lower case. The zero value and the all-zero address are both
// invalid wherever a role or holder is required.
type Address string

// ZeroAddress is the canonical all-zero address.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

const addressHexLen = 40

// ParseAddress normalizes raw input into an Address.
func ParseAddress(value string) (Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("address is empty")
	}
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		return "", fmt.Errorf("address %q missing 0x prefix", value)
	}
	hex := trimmed[2:]
	if len(hex) != addressHexLen {
		return "", fmt.Errorf("address %q has %d hex chars, want %d", value, len(hex), addressHexLen)
	}
	for _, c := range hex {
		if !isHexChar(c) {
			return "", fmt.Errorf("address %q contains non-hex character %q", value, c)
		}
	}
	return Address("0x" + strings.ToLower(hex)), nil
}

func isHexChar(c rune) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return string(a)
}

// IsValid reports whether the address is well formed and non-zero.
func (a Address) IsValid() bool {
	parsed, err := ParseAddress(string(a))
	if err != nil {
		return false
	}
	return parsed != ZeroAddress
}

// IsZero reports whether the address is unset or the all-zero address.
func (a Address) IsZero() bool {
	return a == "" || strings.EqualFold(string(a), string(ZeroAddress))
}

// Value marshals the address for database storage.
func (a Address) Value() (driver.Value, error) {
	if a == "" {
		return "", nil
	}
	parsed, err := ParseAddress(string(a))
	if err != nil {
		return nil, err
	}
	return string(parsed), nil
}

// Scan unmarshals a database value into an Address.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = ""
		return nil
	case string:
		if v == "" {
			*a = ""
			return nil
		}
		parsed, err := ParseAddress(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		return a.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Address", src)
	}
}

// Package addr defines the account/asset address type used across the
// engine. Addresses are base58-encoded 32-byte identifiers, matching the
// account model of the ledger the engine settles for.
package addr

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Len is the raw address length in bytes.
const Len = 32

// Address is a base58-encoded 32-byte account or asset identifier.
type Address string

// Parse validates s as a base58-encoded 32-byte address.
func Parse(s string) (Address, error) {
	if s == "" {
		return "", fmt.Errorf("address is empty")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("invalid base58 address %q: %w", s, err)
	}
	if len(raw) != Len {
		return "", fmt.Errorf("invalid address length %d, want %d", len(raw), Len)
	}
	return Address(s), nil
}

// MustParse is Parse panicking on error. Test and bootstrap helper.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytes encodes raw as an Address.
func FromBytes(raw []byte) (Address, error) {
	if len(raw) != Len {
		return "", fmt.Errorf("invalid address length %d, want %d", len(raw), Len)
	}
	return Address(base58.Encode(raw)), nil
}

func (a Address) String() string { return string(a) }

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == "" }

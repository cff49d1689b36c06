package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Size is the byte length of an account identity.
const Size = 32

// ErrInvalid is returned when an identity string cannot be decoded.
var ErrInvalid = errors.New("invalid identity")

// ID identifies an account holder: a beneficiary, a deployer or a deployment itself.
type ID [Size]byte

// Zero is the null identity. It never owns funds.
var Zero ID

// Parse decodes a 64 character hex identity, with or without a 0x prefix.
func Parse(s string) (ID, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != Size*2 {
		return ID{}, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalid, Size*2, len(s))
	}
	var id ID
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return ID{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return id, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether id is the null identity.
func (id ID) IsZero() bool {
	return id == Zero
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

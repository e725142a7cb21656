package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressSize is the size of an account or token identity in bytes
const AddressSize = 20

// Address identifies an account, a token instance or the registry
type Address [AddressSize]byte

// ZeroAddress is the empty identity. It never owns balances.
var ZeroAddress Address

// BytesToAddress returns the address formed by the last 20 bytes of b.
// Shorter inputs are left-padded with zeros.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressSize {
		b = b[len(b)-AddressSize:]
	}
	copy(a[AddressSize-len(b):], b)
	return a
}

// HexToAddress parses a hex address, with or without 0x prefix
func HexToAddress(s string) (Address, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(data) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(data))
	}
	return BytesToAddress(data), nil
}

// MustHexToAddress parses a hex address, panicking if invalid.
// Use only for constants and tests.
func MustHexToAddress(s string) Address {
	a, err := HexToAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero returns true for the zero address
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bytes returns a copy of the address bytes
func (a Address) Bytes() []byte {
	out := make([]byte, AddressSize)
	copy(out, a[:])
	return out
}

// String returns the 0x-prefixed hex encoding
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Less orders addresses bytewise, for deterministic iteration
func (a Address) Less(b Address) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := HexToAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

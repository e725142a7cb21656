package types

import (
	"fmt"
	"strings"
)

// Variant is the token flavour. VariantAny is only meaningful as an
// extension restriction.
type Variant uint8

const (
	VariantAny         Variant = 0
	VariantFungible    Variant = 1
	VariantNonFungible Variant = 2
)

// String returns the variant name
func (v Variant) String() string {
	switch v {
	case VariantAny:
		return "any"
	case VariantFungible:
		return "fungible"
	case VariantNonFungible:
		return "non-fungible"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// IsTokenVariant returns true for variants a token can be deployed as
func (v Variant) IsTokenVariant() bool {
	return v == VariantFungible || v == VariantNonFungible
}

// Permits reports whether an extension restricted to v may run on a token of variant tv
func (v Variant) Permits(tv Variant) bool {
	return v == VariantAny || v == tv
}

// ParseVariant parses a variant name as produced by String
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any":
		return VariantAny, nil
	case "fungible", "erc20":
		return VariantFungible, nil
	case "non-fungible", "nonfungible", "erc721":
		return VariantNonFungible, nil
	default:
		return 0, fmt.Errorf("unknown variant %q", s)
	}
}

// State is the token lifecycle state. Transitions only move forward.
type State uint8

const (
	StateLocked  State = 0
	StateActive  State = 1
	StateTracked State = 2
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateActive:
		return "active"
	case StateTracked:
		return "tracked"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// IsValid returns true for known states
func (s State) IsValid() bool {
	return s <= StateTracked
}

// System is the governance system deciding who holds privileged authority
type System uint8

const (
	SystemAbsoluteMonarchy       System = 0
	SystemConstitutionalMonarchy System = 1
	SystemDemocracy              System = 2
)

// String returns the system name
func (s System) String() string {
	switch s {
	case SystemAbsoluteMonarchy:
		return "absolute-monarchy"
	case SystemConstitutionalMonarchy:
		return "constitutional-monarchy"
	case SystemDemocracy:
		return "democracy"
	default:
		return fmt.Sprintf("system(%d)", uint8(s))
	}
}

// IsValid returns true for known systems
func (s System) IsValid() bool {
	return s <= SystemDemocracy
}

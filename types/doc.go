// Package types defines the shared data structures of the tokenberry governance-token engine.
//
// # Identities
//
// Address: 20-byte identity of an account, a token instance or the registry.
// Addresses render as 0x-prefixed hex and marshal as text for JSON and YAML.
//
// Hash: 32-byte SHA-256 digest used for proposal hashes, signed-message records
// and deterministic token addresses.
//
// # Operations
//
// Selector: 4-byte operation identifier derived from an operation signature such as
// "transfer(address,uint64)". Tokens dispatch native operations and extension
// operations by selector.
//
// Call: a selector followed by JSON encoded arguments. Proposals carry calls as
// opaque payloads; only the handler owning the selector decodes the arguments.
//
// # Governance enums
//
// Variant: Fungible or NonFungible token flavour (Any is an extension restriction).
//
// State: Locked → Active → Tracked lifecycle. Transitions only move forward.
//
// System: AbsoluteMonarchy, ConstitutionalMonarchy or Democracy authority model.
//
// # Errors
//
// The error kinds shared by every package (ErrInvalidAuthority,
// ErrInvalidStateTransition, ErrEpochWindowViolation, ...) live here. Packages wrap
// them with context; match with errors.Is.
//
// # Arithmetic
//
// Balances and supply are uint64. AddUint64 and SubUint64 fail with ErrOverflow and
// ErrUnderflow instead of wrapping.
package types

// Package engine applies transactions to the token registry one at a time.
//
// Every transaction carries a timestamp that plays the role of the block
// time: epochs of every token are derived from it. Timestamps never move
// backwards. Transactions are applied atomically; a failed transaction
// leaves no trace and is not journaled.
//
// # Transaction Kinds
//
//	create_token        guardian-signed token deployment
//	allow_extension     registry owner adds a catalog extension to the allow-list
//	disallow_extension  registry owner removes an extension from the allow-list
//	call                payload executed on a token
//
// # Caller Identity
//
// The caller of a call transaction is resolved by a CallerResolver. With a
// trusted forwarder configured, calls sent by the forwarder carry the real
// caller in the last 20 bytes of the data (ERC-2771).
//
// # Recovery
//
// Successful transactions are appended to the journal. Start replays the
// journal before new transactions are accepted, which reproduces the state
// exactly because execution is deterministic.
//
// # Thread Safety
//
// Apply holds the write lock for the whole transaction. View runs read-only
// functions under the read lock.
package engine

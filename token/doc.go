// Package token implements the token core: one-time initialization,
// fungible and non-fungible balances, the native operation table, and the
// host context extensions run in.
//
// # Calls
//
// Every call is a payload of selector || JSON arguments. Token.Call looks
// the selector up in the native table first; anything else is handed to the
// extension dispatcher, which runs the owning extension's handler against
// this token's storage. Privileged native operations (mint, setState,
// setSystem, setMaintainer, enableExtension, disableExtension) resolve
// authority through the governance machine before they run.
//
// # Atomicity
//
// Execute wraps a top-level call in a Batch. The first time a batch touches
// a token, nested or not, it snapshots the token's entire state; if the
// call fails every touched token is restored. Nothing a failed call did is
// observable afterwards, including checkpoint writes, vote tallies and
// proposal execution marks.
//
// # Snapshots
//
// While the token is Tracked, every balance change records the affected
// balances and the total supply in the snapshot ledger for the current
// epoch. Moving to Tracked seeds the ledger with the current holders and
// supply. Before that the ledger is empty and historical queries read 0.
package token

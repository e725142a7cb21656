// Package voting implements the proposal voting extension.
//
// A proposal binds an opaque call payload to the epoch after the one it was
// submitted in:
//
//	hash = SHA-256(uint64be(submitEpoch + 1) || payload)
//
// Its status is derived from the current epoch:
//
//	epoch <  votingEpoch   Pending
//	epoch == votingEpoch   VotingOpen
//	epoch >  votingEpoch   Accepted | Rejected (decided by the Policy)
//	executed               Executed
//
// Vote weight is the voter's snapshot balance at the voting epoch, so
// balance changes during the voting epoch cannot change a cast vote. A
// repeated vote replaces the voter's previous contribution.
//
// Executing an accepted proposal marks it Executed and runs its payload on
// the token as a mediated call, the only kind of call that holds authority
// under Democracy. If the payload fails the whole execution is rolled back
// with the rest of the transaction and the proposal stays executable.
package voting

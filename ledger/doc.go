// Package ledger implements the epoch clock and the snapshot ledger.
//
// Clock maps a timestamp to an epoch index:
//
//	epoch = floor((now - deployedAt) / window)
//
// Epoch 0 begins at deployment. The window is fixed when the token is
// initialized.
//
// Ledger keeps one sparse checkpoint sequence per account plus one for the
// total supply. A change in the epoch of the last checkpoint overwrites it;
// a change in a later epoch appends. Queries binary search the sequence, so
// lookups cost O(log checkpoints) regardless of how many epochs have passed.
// Queries for future epochs return the latest value, which makes
// BalanceAt(currentEpoch, a) the current balance.
//
// The owning token keeps the invariant
//
//	sum(BalanceAt(E, a) for every account a) == TotalSupplyAt(E)
//
// for every epoch E by recording both sides of each mutation.
package ledger

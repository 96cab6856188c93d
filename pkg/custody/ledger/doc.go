// Package ledger implements the custody ledger: the only writer of
// chain-of-custody events.
//
// The ledger guarantees an append-only, hash-linked history per evidence
// item. Sequence numbers are assigned contiguously starting at zero, each
// event records the digest of its predecessor, and appends are validated
// against the custody state machine:
//
//	Unassigned → Collected → {Stored, Transferred, Analyzed, Presented, Returned}* → Destroyed
//
// Destroyed is terminal. Appends to the same item are serialized through a
// per-item mutex; appends to different items proceed in parallel. Storage
// commits happen synchronously inside the append: a failed commit leaves no
// trace in memory, so no sequence gap is ever observed by later callers.
package ledger

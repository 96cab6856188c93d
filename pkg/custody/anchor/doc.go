// Package anchor maintains the tamper-evidence anchor log: an append-only
// record of chain-head digests taken at every ledger append.
//
// The anchor log lives in its own database, separate from the custody
// event store, so an attacker who can rewrite the event store still has to
// produce matching anchors. The integrity sweep compares each item's
// recomputed chain head against its latest anchor; a mismatch is evidence
// of tampering in one store or the other. The latest anchor for an item is
// what the evidence model exposes as its blockchain hash.
package anchor

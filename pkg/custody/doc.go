// Package custody defines the core types for the evidence custody ledger:
// evidence items, chain-of-custody events, the query filter, and the
// storage interface shared by all backends.
//
// Every evidence item carries an ordered, append-only history of custody
// events. Events are hash-linked: each event's digest covers its own
// canonical serialization plus the digest of its predecessor, so any
// post-hoc modification of a stored event is detectable by re-walking
// the chain. The custody subsystem is split into focused subpackages:
//
//   - hashchain:  deterministic digest computation and chain verification
//   - ledger:     the only writer of custody events; ordering, the custody
//     state machine, and per-item append serialization
//   - classifier: derives admissibility status from ledger shape
//   - query:      multi-predicate filter evaluation over the collection
//   - store:      the aggregate root coordinating intake and mutation
//   - storage:    persistence backends (memory, SQLite)
//   - anchor:     append-only log of chain-head digests for tamper detection
//   - integrity:  scheduled background chain re-verification
//   - export:     JSON and CSV export of query results
package custody

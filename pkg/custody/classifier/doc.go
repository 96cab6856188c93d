// Package classifier derives an item's admissibility status from its
// custody chain and collection metadata.
//
// Classification is a pure function of (item, history): it never mutates
// the ledger, keeps no hidden state, and re-running it on the same inputs
// always yields the same status. The thresholds (minimum chain length,
// required metadata, preservation period, and the reserved challenge note
// tag) are configuration, not ledger truth.
package classifier

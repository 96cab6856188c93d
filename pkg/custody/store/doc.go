// Package store implements the evidence store, the aggregate root of the
// custody subsystem and the only entry point callers use to create items
// or request mutation.
//
// All custody changes flow through the ledger; the store never edits
// custody-derived fields directly. After every append it re-runs the
// admissibility classifier, refreshes the item's cached projections, and
// records a chain-head anchor. Descriptive fields (title, tags, ...) may
// be amended independently of the chain, but custodian, admissibility, and
// the anchor hash are always ledger-derived.
package store

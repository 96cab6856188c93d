// Package query evaluates structured filters over the evidence collection.
//
// A filter is an immutable value passed per call; there is no ambient or
// global filter state. All set predicates are AND-ed, unset predicates
// impose no constraint, and evaluation is O(n·p) over n items and p active
// predicates. Derived fields (custodian, admissibility, anchor hash) are
// read from the item projections; a query never re-verifies chains and
// never touches the append path. Input order is preserved unless a sort
// key is explicitly requested.
package query

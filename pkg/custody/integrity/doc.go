// Package integrity runs periodic tamper sweeps over the evidence
// collection: every chain is re-verified from genesis and its head digest
// is compared against the independent anchor log.
package integrity

// Package hashchain computes and verifies the linked digests over custody
// events. Each event's hash is SHA-256 over the event's canonical
// serialization concatenated with the prior event's hash:
//
//	SHA-256(sequence | timestamp | actor | action | from | to | notes | prior_hash)
//
// The serialization is fixed by field declaration order, uses UTF-8 and
// RFC 3339 nanosecond timestamps in UTC, and has no locale-dependent
// formatting, so identical inputs digest identically on every platform.
// Tampering with any stored field of any event breaks the chain from that
// event forward and is detected by VerifyChain.
package hashchain

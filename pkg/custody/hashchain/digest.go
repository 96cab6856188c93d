package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"custodia-hq/custodia/pkg/custody"
)

// Digest computes the hex-encoded SHA-256 digest for a custody event given
// the digest of its predecessor (custody.GenesisHash for the first event).
//
// Digest is a pure function of the event's immutable fields and priorHash;
// the event's own Hash field is ignored. Recomputing Digest over a stored
// event must always reproduce the stored value. Free-text fields are
// delimiter-escaped before joining so the serialization is injective:
// moving text across a field boundary always changes the digest.
func Digest(event *custody.CustodyEvent, priorHash string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%s|%s",
		event.Sequence,
		canonicalTime(event.Timestamp),
		escape(event.Actor),
		escape(string(event.Action)),
		escape(event.FromCustodian),
		escape(event.ToCustodian),
		escape(event.Notes),
		priorHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// escape backslash-escapes the field delimiter inside a value. Without
// this, a "|" in one free-text field is indistinguishable from a field
// boundary, and two distinct events could share a serialization.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "|", `\|`)
}

// canonicalTime renders a timestamp in the one format used for hashing:
// RFC 3339 with nanoseconds, always in UTC. Normalizing the zone here keeps
// the digest stable across storage round-trips.
func canonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

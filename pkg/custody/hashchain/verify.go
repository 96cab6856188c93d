package hashchain

import "custodia-hq/custodia/pkg/custody"

// VerifyChain recomputes every digest in the ordered event sequence and
// compares it to the stored value. It fails fast at the first mismatch.
//
// Two failure modes are distinguished: non-contiguous sequence numbers
// (IntegrityOutOfOrder) and a digest that no longer reproduces the stored
// hash (IntegrityBroken). Both carry the offending sequence. A nil return
// means the chain is intact. An empty chain is trivially valid.
func VerifyChain(events []*custody.CustodyEvent) error {
	priorHash := custody.GenesisHash

	for i, event := range events {
		if event.Sequence != int64(i) {
			return custody.NewIntegrityOutOfOrder(event.ItemID, event.Sequence)
		}
		if event.PriorHash != priorHash {
			return custody.NewIntegrityBroken(event.ItemID, event.Sequence)
		}
		if Digest(event, priorHash) != event.Hash {
			return custody.NewIntegrityBroken(event.ItemID, event.Sequence)
		}
		priorHash = event.Hash
	}

	return nil
}

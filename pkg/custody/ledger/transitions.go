package ledger

import "custodia-hq/custodia/pkg/custody"

// activeSuccessors are the actions legal once an item has been collected
// and before it is destroyed.
var activeSuccessors = []custody.CustodyAction{
	custody.ActionTransferred,
	custody.ActionAnalyzed,
	custody.ActionStored,
	custody.ActionPresented,
	custody.ActionReturned,
	custody.ActionDestroyed,
}

// ValidActions returns the actions legal from the given custody state.
// The zero-value state means the item is unassigned (no events yet);
// the only legal first action is Collected. Destroyed is terminal.
func ValidActions(state custody.CustodyAction) []custody.CustodyAction {
	switch state {
	case "":
		return []custody.CustodyAction{custody.ActionCollected}
	case custody.ActionDestroyed:
		return nil
	default:
		return activeSuccessors
	}
}

// legalTransition reports whether action may follow the given state.
func legalTransition(state, action custody.CustodyAction) bool {
	for _, a := range ValidActions(state) {
		if a == action {
			return true
		}
	}
	return false
}

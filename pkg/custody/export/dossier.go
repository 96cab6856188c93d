package export

import (
	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/store"
)

// Dossier is one item together with its full custody history. This is the
// unit of a discovery production: the item's descriptive record plus every
// hash-chained event proving who held it and when.
type Dossier struct {
	Item    *custody.EvidenceItem   `json:"item"`
	History []*custody.CustodyEvent `json:"history"`
}

// Collect assembles dossiers for the given item IDs. An empty id list
// collects every item in intake order.
func Collect(st *store.Store, ids []string) ([]*Dossier, error) {
	if len(ids) == 0 {
		ids = st.ItemIDs()
	}

	dossiers := make([]*Dossier, 0, len(ids))
	for _, id := range ids {
		item, err := st.Get(id)
		if err != nil {
			return nil, err
		}
		history, err := st.History(id)
		if err != nil {
			return nil, err
		}
		dossiers = append(dossiers, &Dossier{Item: item, History: history})
	}
	return dossiers, nil
}

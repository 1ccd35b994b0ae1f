package model

// ListMerger applies a diff to the list at its base block.
type ListMerger interface {
	Merge(base *MasternodeList, diff *DiffMessage) (*MasternodeList, error)
}

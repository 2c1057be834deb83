package sortutil

import (
	"sort"

	"github.com/skaphos/gitpost/internal/model"
	"github.com/skaphos/gitpost/internal/registry"
)

// LessStoreIDPath provides deterministic ordering by store identity first,
// then by path for multi-checkout scenarios.
func LessStoreIDPath(storeIDI, pathI, storeIDJ, pathJ string) bool {
	if storeIDI == storeIDJ {
		return pathI < pathJ
	}
	return storeIDI < storeIDJ
}

// SortStoreStatuses orders status rows by StoreID, then Path.
func SortStoreStatuses(statuses []model.StoreStatus) {
	sort.SliceStable(statuses, func(i, j int) bool {
		return LessStoreIDPath(statuses[i].StoreID, statuses[i].Path, statuses[j].StoreID, statuses[j].Path)
	})
}

// SortRegistryEntries orders registry entries by StoreID, then Path.
func SortRegistryEntries(entries []registry.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return LessStoreIDPath(entries[i].StoreID, entries[i].Path, entries[j].StoreID, entries[j].Path)
	})
}

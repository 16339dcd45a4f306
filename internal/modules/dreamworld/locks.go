// Package dreamworld holds what the dream world pipeline stages share.
package dreamworld

import "strconv"

// CatalogKey serializes writers that may insert new locations.
const CatalogKey = "catalog"

func LocationKey(id uint64) string {
	return "location:" + strconv.FormatUint(id, 10)
}

func LocationKeys(ids []uint64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, LocationKey(id))
	}
	return out
}

package service

import "recordstore/pkg/catalog/domain/model"

// ResolveGroupName joins a record's group identifier against the current
// group list. A missing GroupID or an unmatched one yields the empty
// string; the value from the gateway's record payload is never trusted.
func ResolveGroupName(r model.Record, groups []model.Group) string {
	if r.GroupID == nil {
		return ""
	}
	for _, g := range groups {
		if g.ID == *r.GroupID {
			return g.Name
		}
	}
	return ""
}

package service

import (
	"strconv"
	"strings"

	"recordstore/pkg/catalog/domain/model"
)

// FilterRecords returns the records matching searchText, order preserved.
// A trimmed-empty search returns a shallow copy of the input.
func FilterRecords(records []model.Record, searchText string) []model.Record {
	query := strings.ToLower(strings.TrimSpace(searchText))
	out := make([]model.Record, 0, len(records))
	if query == "" {
		return append(out, records...)
	}
	for _, r := range records {
		if recordMatches(r, query) {
			out = append(out, r)
		}
	}
	return out
}

// recordMatches tests a case-insensitive substring against the title, the
// resolved group name, and the decimal form of the publication year.
func recordMatches(r model.Record, query string) bool {
	if strings.Contains(strings.ToLower(r.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(r.GroupName), query) {
		return true
	}
	if r.YearOfPublication != nil && strings.Contains(strconv.Itoa(*r.YearOfPublication), query) {
		return true
	}
	return false
}

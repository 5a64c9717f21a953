package transport

import (
	"encoding/json"
	"sort"

	log "github.com/sirupsen/logrus"

	"recordstore/pkg/catalog/domain/model"
)

// The remote gateway has shipped three list envelope conventions over its
// lifetime: a bare JSON array, an object wrapping the array in "$values",
// and an object wrapping it in "data". Decoding happens once here, into an
// explicit tagged envelope, instead of duck-type sniffing per call site.

type envelopeKind int

const (
	envelopeList envelopeKind = iota
	envelopeValues
	envelopeData
	envelopeObject
	envelopeInvalid
)

type envelope struct {
	kind  envelopeKind
	items []json.RawMessage
}

func decodeEnvelope(raw []byte) envelope {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return envelope{kind: envelopeList, items: list}
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return envelope{kind: envelopeInvalid}
	}
	if wrapped, ok := object["$values"]; ok {
		if err := json.Unmarshal(wrapped, &list); err == nil {
			return envelope{kind: envelopeValues, items: list}
		}
	}
	if wrapped, ok := object["data"]; ok {
		if err := json.Unmarshal(wrapped, &list); err == nil {
			return envelope{kind: envelopeData, items: list}
		}
	}

	// Legacy shape: a plain object whose own values are the entities.
	// Keys are sorted so the fallback enumeration is deterministic.
	keys := make([]string, 0, len(object))
	for k := range object {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]json.RawMessage, 0, len(object))
	for _, k := range keys {
		items = append(items, object[k])
	}
	return envelope{kind: envelopeObject, items: items}
}

// decodeRecords normalizes any tolerated envelope into a record list. The
// object-values fallback is accepted on the records path only. Unrecognized
// input degrades to an empty list with a warning, never an error.
func decodeRecords(raw []byte) []model.Record {
	env := decodeEnvelope(raw)
	if env.kind == envelopeInvalid {
		log.Warn("unrecognized record list envelope, treating as empty")
		return []model.Record{}
	}
	records := make([]model.Record, 0, len(env.items))
	for _, item := range env.items {
		var r model.Record
		if err := json.Unmarshal(item, &r); err != nil {
			log.WithError(err).Warn("skipping malformed record entry")
			continue
		}
		records = append(records, r)
	}
	return records
}

// decodeGroups is the groups-path normalizer; unlike records it does not
// accept the object-values fallback.
func decodeGroups(raw []byte) []model.Group {
	env := decodeEnvelope(raw)
	if env.kind == envelopeInvalid || env.kind == envelopeObject {
		log.Warn("unrecognized group list envelope, treating as empty")
		return []model.Group{}
	}
	groups := make([]model.Group, 0, len(env.items))
	for _, item := range env.items {
		var g model.Group
		if err := json.Unmarshal(item, &g); err != nil {
			log.WithError(err).Warn("skipping malformed group entry")
			continue
		}
		groups = append(groups, g)
	}
	return groups
}

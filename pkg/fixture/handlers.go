// Package fixture is a local stand-in for the remote catalog gateway, used
// for development and manual testing of the screen without the real
// deployment. It cycles through the three historical list envelope shapes
// so the client's normalizer is exercised end to end.
package fixture

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"recordstore/pkg/catalog/domain/model"
)

type handler struct {
	mu       sync.Mutex
	records  []model.Record
	groups   []model.Group
	cart     map[string][]model.CartItem
	nextID   int
	requests int
}

func Router() http.Handler {
	year := 1997
	groupID := 9
	h := &handler{
		records: []model.Record{
			{ID: 1, Title: "OK Computer", YearOfPublication: &year, Price: 19.99, Stock: 5, GroupID: &groupID},
			{ID: 2, Title: "In Rainbows", Price: 24.5, Stock: 2, GroupID: &groupID},
		},
		groups: []model.Group{
			{ID: 9, Name: "Radiohead"},
		},
		cart:   make(map[string][]model.CartItem),
		nextID: 3,
	}

	r := mux.NewRouter()
	r.HandleFunc("/records", h.listRecords).Methods(http.MethodGet)
	r.HandleFunc("/records", h.saveRecord).Methods(http.MethodPost)
	r.HandleFunc("/records/{id}", h.saveRecord).Methods(http.MethodPut)
	r.HandleFunc("/records/{id}", h.deleteRecord).Methods(http.MethodDelete)
	r.HandleFunc("/groups", h.listGroups).Methods(http.MethodGet)
	r.HandleFunc("/groups", h.saveGroup).Methods(http.MethodPost)
	r.HandleFunc("/groups/{id}", h.saveGroup).Methods(http.MethodPut)
	r.HandleFunc("/groups/{id}", h.deleteGroup).Methods(http.MethodDelete)
	r.HandleFunc("/cart/{email}", h.getCart).Methods(http.MethodGet)
	r.HandleFunc("/cart/{email}/items/{id}", h.addToCart).Methods(http.MethodPost)
	r.HandleFunc("/cart/{email}/items/{id}", h.removeFromCart).Methods(http.MethodDelete)
	return logMiddleware(r)
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}

// listRecords rotates the envelope shape per request: a bare array, then
// a $values wrapper, then a data wrapper.
func (h *handler) listRecords(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	shape := h.requests % 3
	h.requests++
	records := append([]model.Record(nil), h.records...)
	h.mu.Unlock()

	switch shape {
	case 0:
		writeJSON(w, records)
	case 1:
		writeJSON(w, map[string]interface{}{"$values": records})
	default:
		writeJSON(w, map[string]interface{}{"data": records})
	}
}

func (h *handler) saveRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := readRecord(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := pathID(r); ok {
		rec.ID = id
		for i := range h.records {
			if h.records[i].ID == id {
				h.records[i] = rec
				writeJSON(w, rec)
				return
			}
		}
		http.Error(w, `{"message":"record not found"}`, http.StatusNotFound)
		return
	}
	rec.ID = h.nextID
	h.nextID++
	h.records = append(h.records, rec)
	writeJSON(w, rec)
}

func (h *handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.records {
		if h.records[i].ID == id {
			h.records = append(h.records[:i], h.records[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, `{"message":"record not found"}`, http.StatusNotFound)
}

func (h *handler) listGroups(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	groups := append([]model.Group(nil), h.groups...)
	h.mu.Unlock()
	writeJSON(w, map[string]interface{}{"$values": groups})
}

func (h *handler) saveGroup(w http.ResponseWriter, r *http.Request) {
	grp, err := readGroup(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := pathID(r); ok {
		grp.ID = id
		for i := range h.groups {
			if h.groups[i].ID == id {
				h.groups[i] = grp
				writeJSON(w, grp)
				return
			}
		}
		http.Error(w, `{"message":"group not found"}`, http.StatusNotFound)
		return
	}
	grp.ID = h.nextID
	h.nextID++
	h.groups = append(h.groups, grp)
	writeJSON(w, grp)
}

func (h *handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.groups {
		if h.groups[i].ID == id {
			h.groups = append(h.groups[:i], h.groups[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, `{"message":"group not found"}`, http.StatusNotFound)
}

func (h *handler) getCart(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	h.mu.Lock()
	items := append([]model.CartItem(nil), h.cart[email]...)
	h.mu.Unlock()
	writeJSON(w, items)
}

func (h *handler) addToCart(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	id, _ := pathID(r)
	h.mu.Lock()
	items := h.cart[email]
	found := false
	for i := range items {
		if items[i].RecordID == id {
			items[i].Amount++
			found = true
		}
	}
	if !found {
		items = append(items, model.CartItem{RecordID: id, Amount: 1})
	}
	h.cart[email] = items
	out := append([]model.CartItem(nil), items...)
	h.mu.Unlock()
	writeJSON(w, out)
}

func (h *handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	id, _ := pathID(r)
	h.mu.Lock()
	items := h.cart[email][:0]
	for _, item := range h.cart[email] {
		if item.RecordID == id {
			item.Amount--
		}
		if item.Amount > 0 {
			items = append(items, item)
		}
	}
	h.cart[email] = items
	out := append([]model.CartItem(nil), items...)
	h.mu.Unlock()
	writeJSON(w, out)
}

func readRecord(r *http.Request) (model.Record, error) {
	var rec model.Record
	if isJSON(r) {
		err := json.NewDecoder(r.Body).Decode(&rec)
		return rec, err
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil && err != http.ErrNotMultipart {
		return rec, err
	}
	rec.Title = r.FormValue("titleRecord")
	if y, err := strconv.Atoi(r.FormValue("yearOfPublication")); err == nil {
		rec.YearOfPublication = &y
	}
	rec.Price, _ = strconv.ParseFloat(r.FormValue("price"), 64)
	rec.Stock, _ = strconv.Atoi(r.FormValue("stock"))
	rec.Discontinued, _ = strconv.ParseBool(r.FormValue("discontinued"))
	if g, err := strconv.Atoi(r.FormValue("groupId")); err == nil {
		rec.GroupID = &g
	}
	return rec, nil
}

func readGroup(r *http.Request) (model.Group, error) {
	var grp model.Group
	if isJSON(r) {
		err := json.NewDecoder(r.Body).Decode(&grp)
		return grp, err
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil && err != http.ErrNotMultipart {
		return grp, err
	}
	grp.Name = r.FormValue("nameGroup")
	if g, err := strconv.Atoi(r.FormValue("musicGenreId")); err == nil {
		grp.MusicGenreID = &g
	}
	grp.ImageURL = r.FormValue("imageGroup")
	return grp, nil
}

func isJSON(r *http.Request) bool {
	return r.Header.Get("Content-Type") == "application/json"
}

func pathID(r *http.Request) (int, bool) {
	raw, ok := mux.Vars(r)["id"]
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	return id, err == nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("write response")
	}
}

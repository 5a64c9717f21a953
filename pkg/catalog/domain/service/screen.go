package service

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"recordstore/pkg/catalog/domain/model"
)

// RecordGateway is the remote CRUD contract for records.
type RecordGateway interface {
	List(ctx context.Context) ([]model.Record, error)
	Create(ctx context.Context, r model.Record) (model.Record, error)
	Update(ctx context.Context, r model.Record) (model.Record, error)
	Delete(ctx context.Context, id int) error
}

// GroupGateway is the remote CRUD contract for groups.
type GroupGateway interface {
	List(ctx context.Context) ([]model.Group, error)
	Create(ctx context.Context, g model.Group) (model.Group, error)
	Update(ctx context.Context, g model.Group) (model.Group, error)
	Delete(ctx context.Context, id int) error
}

// CartGateway performs the remote side of cart mutations. The caller's
// identity is passed explicitly; an empty email never reaches the gateway
// because the screen guards on it first.
type CartGateway interface {
	Add(ctx context.Context, email string, r model.Record) error
	Remove(ctx context.Context, email string, r model.Record) error
}

// StockPublisher receives the (id, stock) pairs of every successful record
// fetch, so that other screens replaying the stock channel see values
// consistent with what this one just loaded.
type StockPublisher interface {
	UpdateStock(recordID, stock int)
}

// ErrorReporter receives human-readable messages for user-visible display.
type ErrorReporter interface {
	Report(message string)
}

// CatalogScreen is the view model of the record/group catalog screen: one
// authoritative record list, a derived filtered view, an edit buffer, and
// reactions to stock and cart events.
type CatalogScreen interface {
	Refresh(ctx context.Context) error

	Records() []model.Record
	FilteredRecords() []model.Record
	Groups() []model.Group

	SetSearchText(text string)
	SearchText() string

	ApplyStockEvent(e model.StockChanged)
	ApplyCartSnapshot(items []model.CartItem)
	Run(ctx context.Context, stockCh <-chan model.StockChanged, cartCh <-chan model.CartSnapshot)

	AddToCart(ctx context.Context, email string, recordID int) error
	RemoveFromCart(ctx context.Context, email string, recordID int) error

	StartNewRecord()
	StartEditRecord(id int) error
	EditingRecord() model.Record
	CancelEdit()
	SaveRecord(ctx context.Context, r model.Record) error
	DeleteRecord(ctx context.Context, id int) error

	SaveGroup(ctx context.Context, g model.Group) error
	DeleteGroup(ctx context.Context, id int) error

	VisibleError() (bool, string)
}

func NewCatalogScreen(records RecordGateway, groups GroupGateway, cart CartGateway, stock StockPublisher, reporter ErrorReporter) CatalogScreen {
	return &catalogScreen{
		recordGW: records,
		groupGW:  groups,
		cartGW:   cart,
		stock:    stock,
		reporter: reporter,
	}
}

type catalogScreen struct {
	recordGW RecordGateway
	groupGW  GroupGateway
	cartGW   CartGateway
	stock    StockPublisher
	reporter ErrorReporter

	// generation stamps each refresh at issuance; a completion whose stamp
	// is no longer the newest is discarded instead of overwriting state.
	generation atomic.Uint64

	mu           sync.RWMutex
	records      []model.Record
	filtered     []model.Record
	groups       []model.Group
	lastCart     []model.CartItem
	searchText   string
	editBuffer   model.Record
	visibleError bool
	errorMessage string
}

// Refresh fetches records first, then groups as a continuation. A group
// fetch failure is non-fatal: records are still published with blank group
// names and the error is surfaced through the reporter. A record fetch
// failure leaves the previous state untouched.
func (s *catalogScreen) Refresh(ctx context.Context) error {
	gen := s.generation.Add(1)

	records, err := s.recordGW.List(ctx)
	if err != nil {
		s.fail(err.Error())
		return err
	}
	if s.stale(gen) {
		return nil
	}

	// The fetch is a publisher too: seed the stock channel so other
	// screens replaying it see values consistent with this load.
	for _, r := range records {
		s.stock.UpdateStock(r.ID, r.Stock)
	}

	groups, gerr := s.groupGW.List(ctx)
	if gerr != nil {
		groups = nil
		s.fail(gerr.Error())
	}
	if s.stale(gen) {
		return nil
	}

	s.mu.Lock()
	s.groups = groups
	s.records = records
	s.resolveDerivedLocked()
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

func (s *catalogScreen) stale(gen uint64) bool {
	if gen != s.generation.Load() {
		log.WithField("generation", gen).Debug("discarding stale refresh result")
		return true
	}
	return false
}

// resolveDerivedLocked recomputes every derived field (group names and
// cart membership) from the current group list and last cart snapshot.
func (s *catalogScreen) resolveDerivedLocked() {
	for i := range s.records {
		name := ResolveGroupName(s.records[i], s.groups)
		s.records[i].GroupName = name
		s.records[i].NameGroup = name
	}
	s.applyCartLocked()
}

func (s *catalogScreen) applyCartLocked() {
	for i := range s.records {
		s.records[i].InCart = false
		s.records[i].Amount = 0
		for _, item := range s.lastCart {
			if item.RecordID == s.records[i].ID {
				s.records[i].InCart = true
				s.records[i].Amount = item.Amount
				break
			}
		}
	}
}

// publishLocked rebuilds the filtered view with a fresh slice identity so
// downstream change detection always fires.
func (s *catalogScreen) publishLocked() {
	s.filtered = FilterRecords(s.records, s.searchText)
}

func (s *catalogScreen) Records() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *catalogScreen) FilteredRecords() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Record, len(s.filtered))
	copy(out, s.filtered)
	return out
}

func (s *catalogScreen) Groups() []model.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Group, len(s.groups))
	copy(out, s.groups)
	return out
}

func (s *catalogScreen) SetSearchText(text string) {
	s.mu.Lock()
	s.searchText = text
	s.publishLocked()
	s.mu.Unlock()
}

func (s *catalogScreen) SearchText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchText
}

// ApplyStockEvent replaces the matching entry in both the record list and
// the filtered view with a copy carrying the new stock value. An empty
// event is a no-op.
func (s *catalogScreen) ApplyStockEvent(e model.StockChanged) {
	if e.RecordID == 0 {
		return
	}
	s.mu.Lock()
	for i := range s.records {
		if s.records[i].ID == e.RecordID {
			s.records[i].Stock = e.NewStock
		}
	}
	s.publishLocked()
	s.mu.Unlock()
}

// ApplyCartSnapshot recomputes cart membership for every record from the
// full snapshot, then reapplies the active search filter.
func (s *catalogScreen) ApplyCartSnapshot(items []model.CartItem) {
	s.mu.Lock()
	s.lastCart = items
	s.applyCartLocked()
	s.publishLocked()
	s.mu.Unlock()
}

// Run pumps channel subscriptions into the screen until the context ends
// or both channels are closed. Events are handled strictly in arrival
// order; a stock=5 event followed by stock=3 for the same record leaves
// the record at 3.
func (s *catalogScreen) Run(ctx context.Context, stockCh <-chan model.StockChanged, cartCh <-chan model.CartSnapshot) {
	for stockCh != nil || cartCh != nil {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-stockCh:
			if !ok {
				stockCh = nil
				continue
			}
			s.ApplyStockEvent(e)
		case snap, ok := <-cartCh:
			if !ok {
				cartCh = nil
				continue
			}
			s.ApplyCartSnapshot(snap.Items)
		}
	}
}

func (s *catalogScreen) StartNewRecord() {
	s.mu.Lock()
	s.editBuffer = model.Record{}
	s.mu.Unlock()
}

// StartEditRecord copies the matching record into the edit buffer. The
// buffer never shares memory with the list entry.
func (s *catalogScreen) StartEditRecord(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			s.editBuffer = r
			return nil
		}
	}
	return model.ErrRecordNotFound
}

func (s *catalogScreen) EditingRecord() model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editBuffer
}

func (s *catalogScreen) CancelEdit() {
	s.mu.Lock()
	s.editBuffer = model.Record{}
	s.mu.Unlock()
}

// SaveRecord creates when the record carries the unsaved sentinel identity
// and updates otherwise. On success the edit buffer is reset and the list
// re-fetched.
func (s *catalogScreen) SaveRecord(ctx context.Context, r model.Record) error {
	var err error
	if r.IsNew() {
		_, err = s.recordGW.Create(ctx, r)
	} else {
		_, err = s.recordGW.Update(ctx, r)
	}
	if err != nil {
		s.fail(err.Error())
		return err
	}
	s.CancelEdit()
	return s.Refresh(ctx)
}

func (s *catalogScreen) DeleteRecord(ctx context.Context, id int) error {
	if err := s.recordGW.Delete(ctx, id); err != nil {
		s.fail(err.Error())
		return err
	}
	return s.Refresh(ctx)
}

func (s *catalogScreen) SaveGroup(ctx context.Context, g model.Group) error {
	var err error
	if g.IsNew() {
		_, err = s.groupGW.Create(ctx, g)
	} else {
		_, err = s.groupGW.Update(ctx, g)
	}
	if err != nil {
		s.fail(err.Error())
		return err
	}
	return s.Refresh(ctx)
}

func (s *catalogScreen) DeleteGroup(ctx context.Context, id int) error {
	if err := s.groupGW.Delete(ctx, id); err != nil {
		s.fail(err.Error())
		return err
	}
	return s.Refresh(ctx)
}

func (s *catalogScreen) VisibleError() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visibleError, s.errorMessage
}

// fail records a user-visible error. The screen stays interactive; no
// failure is fatal and nothing retries automatically.
func (s *catalogScreen) fail(message string) {
	s.mu.Lock()
	s.visibleError = true
	s.errorMessage = message
	s.mu.Unlock()
	if s.reporter != nil {
		s.reporter.Report(message)
	}
	log.WithField("error", message).Warn("catalog screen operation failed")
}

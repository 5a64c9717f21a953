package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordstore/pkg/catalog/domain/model"
	"recordstore/pkg/catalog/domain/service"
)

func intPtr(v int) *int { return &v }

func setup(t *testing.T) (service.CatalogScreen, *mockRecordGateway, *mockGroupGateway, *mockCartGateway, *mockStockPublisher, *mockReporter) {
	t.Helper()
	records := &mockRecordGateway{}
	groups := &mockGroupGateway{}
	cart := &mockCartGateway{}
	stock := &mockStockPublisher{}
	reporter := &mockReporter{}
	screen := service.NewCatalogScreen(records, groups, cart, stock, reporter)
	return screen, records, groups, cart, stock, reporter
}

func TestRefresh(t *testing.T) {
	screen, records, groups, _, stock, _ := setup(t)
	records.list = []model.Record{
		{ID: 1, Title: "A", GroupID: intPtr(9), Stock: 2},
		{ID: 2, Title: "B", Stock: 7},
	}
	groups.list = []model.Group{{ID: 9, Name: "Rock"}}

	require.NoError(t, screen.Refresh(context.Background()))

	got := screen.Records()
	require.Len(t, got, 2)
	assert.Equal(t, "Rock", got[0].GroupName)
	assert.Equal(t, "Rock", got[0].NameGroup)
	assert.Equal(t, 2, got[0].Stock)
	assert.Equal(t, "", got[1].GroupName)
	assert.Equal(t, got, screen.FilteredRecords())

	t.Run("seeds the stock channel with every fetched pair", func(t *testing.T) {
		require.Len(t, stock.updates, 2)
		assert.Equal(t, stockUpdate{recordID: 1, stock: 2}, stock.updates[0])
		assert.Equal(t, stockUpdate{recordID: 2, stock: 7}, stock.updates[1])
	})
}

func TestRefreshUnmatchedGroupYieldsEmptyName(t *testing.T) {
	screen, records, groups, _, _, _ := setup(t)
	records.list = []model.Record{{ID: 1, Title: "A", GroupID: intPtr(42)}}
	groups.list = []model.Group{{ID: 9, Name: "Rock"}}

	require.NoError(t, screen.Refresh(context.Background()))
	assert.Equal(t, "", screen.Records()[0].GroupName)
}

func TestRefreshGroupFailureIsNonFatal(t *testing.T) {
	screen, records, groups, _, _, reporter := setup(t)
	records.list = []model.Record{{ID: 1, Title: "A", GroupID: intPtr(9)}}
	groups.err = errors.New("groups unavailable")

	require.NoError(t, screen.Refresh(context.Background()))

	got := screen.Records()
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].GroupName)

	visible, message := screen.VisibleError()
	assert.True(t, visible)
	assert.Equal(t, "groups unavailable", message)
	assert.Equal(t, []string{"groups unavailable"}, reporter.messages)
}

func TestRefreshRecordFailureKeepsPriorState(t *testing.T) {
	screen, records, _, _, _, reporter := setup(t)
	records.list = []model.Record{{ID: 1, Title: "A"}}
	require.NoError(t, screen.Refresh(context.Background()))

	records.err = errors.New("boom")
	err := screen.Refresh(context.Background())
	require.Error(t, err)

	assert.Len(t, screen.Records(), 1)
	assert.Contains(t, reporter.messages, "boom")
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	screen, records, groups, _, _, _ := setup(t)
	groups.list = []model.Group{}

	// The first refresh's record fetch triggers a second, newer refresh
	// that completes before the first one does. The first completion must
	// not overwrite the newer state.
	first := true
	records.listFunc = func() ([]model.Record, error) {
		if first {
			first = false
			records.list = []model.Record{{ID: 2, Title: "newer"}}
			require.NoError(t, screen.Refresh(context.Background()))
			return []model.Record{{ID: 1, Title: "older"}}, nil
		}
		return records.list, nil
	}

	require.NoError(t, screen.Refresh(context.Background()))

	got := screen.Records()
	require.Len(t, got, 1)
	assert.Equal(t, "newer", got[0].Title)
}

func TestApplyStockEvent(t *testing.T) {
	screen, records, _, _, _, _ := setup(t)
	records.list = []model.Record{{ID: 7, Title: "A", Stock: 10}, {ID: 8, Title: "B", Stock: 1}}
	require.NoError(t, screen.Refresh(context.Background()))

	t.Run("events apply in emission order", func(t *testing.T) {
		screen.ApplyStockEvent(model.StockChanged{RecordID: 7, NewStock: 5})
		screen.ApplyStockEvent(model.StockChanged{RecordID: 7, NewStock: 3})

		assert.Equal(t, 3, screen.Records()[0].Stock)
		assert.Equal(t, 3, screen.FilteredRecords()[0].Stock)
		assert.Equal(t, 1, screen.Records()[1].Stock)
	})

	t.Run("empty event is a no-op", func(t *testing.T) {
		screen.ApplyStockEvent(model.StockChanged{})
		assert.Equal(t, 3, screen.Records()[0].Stock)
	})
}

func TestApplyCartSnapshot(t *testing.T) {
	screen, records, _, _, _, _ := setup(t)
	records.list = []model.Record{{ID: 1, Title: "Abbey Road"}, {ID: 2, Title: "Help"}}
	require.NoError(t, screen.Refresh(context.Background()))

	screen.ApplyCartSnapshot([]model.CartItem{{RecordID: 2, Amount: 3}})

	got := screen.Records()
	assert.False(t, got[0].InCart)
	assert.Equal(t, 0, got[0].Amount)
	assert.True(t, got[1].InCart)
	assert.Equal(t, 3, got[1].Amount)

	t.Run("active search filter survives reconciliation", func(t *testing.T) {
		screen.SetSearchText("help")
		screen.ApplyCartSnapshot([]model.CartItem{{RecordID: 2, Amount: 1}})

		filtered := screen.FilteredRecords()
		require.Len(t, filtered, 1)
		assert.Equal(t, "Help", filtered[0].Title)
		assert.Equal(t, 1, filtered[0].Amount)
	})

	t.Run("membership is recomputed from the latest snapshot", func(t *testing.T) {
		screen.ApplyCartSnapshot(nil)
		for _, r := range screen.Records() {
			assert.False(t, r.InCart)
			assert.Equal(t, 0, r.Amount)
		}
	})
}

func TestRunPumpsChannelsInOrder(t *testing.T) {
	screen, records, _, _, _, _ := setup(t)
	records.list = []model.Record{{ID: 7, Title: "A", Stock: 10}}
	require.NoError(t, screen.Refresh(context.Background()))

	stockCh := make(chan model.StockChanged, 2)
	cartCh := make(chan model.CartSnapshot, 1)
	stockCh <- model.StockChanged{RecordID: 7, NewStock: 5}
	stockCh <- model.StockChanged{RecordID: 7, NewStock: 3}
	cartCh <- model.CartSnapshot{Items: []model.CartItem{{RecordID: 7, Amount: 1}}}
	close(stockCh)
	close(cartCh)

	screen.Run(context.Background(), stockCh, cartCh)

	got := screen.Records()[0]
	assert.Equal(t, 3, got.Stock)
	assert.True(t, got.InCart)
}

func TestEditBuffer(t *testing.T) {
	screen, records, _, _, _, _ := setup(t)
	records.list = []model.Record{{ID: 5, Title: "Original"}}
	require.NoError(t, screen.Refresh(context.Background()))

	t.Run("edit entry copies the record", func(t *testing.T) {
		require.NoError(t, screen.StartEditRecord(5))
		buffer := screen.EditingRecord()
		buffer.Title = "changed locally"
		assert.Equal(t, "Original", screen.Records()[0].Title)
		assert.Equal(t, "Original", screen.EditingRecord().Title)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, screen.StartEditRecord(99), model.ErrRecordNotFound)
	})

	t.Run("cancel resets to the unsaved sentinel", func(t *testing.T) {
		require.NoError(t, screen.StartEditRecord(5))
		screen.CancelEdit()
		assert.True(t, screen.EditingRecord().IsNew())
	})

	t.Run("start new", func(t *testing.T) {
		require.NoError(t, screen.StartEditRecord(5))
		screen.StartNewRecord()
		assert.True(t, screen.EditingRecord().IsNew())
	})
}

func TestSaveRecord(t *testing.T) {
	t.Run("create when unsaved, then refresh", func(t *testing.T) {
		screen, records, _, _, _, _ := setup(t)
		records.list = []model.Record{{ID: 1, Title: "created"}}

		require.NoError(t, screen.SaveRecord(context.Background(), model.Record{Title: "created"}))
		assert.Equal(t, 1, records.created)
		assert.Equal(t, 0, records.updated)
		assert.True(t, screen.EditingRecord().IsNew())
		assert.Len(t, screen.Records(), 1)
	})

	t.Run("update when saved", func(t *testing.T) {
		screen, records, _, _, _, _ := setup(t)
		require.NoError(t, screen.SaveRecord(context.Background(), model.Record{ID: 3, Title: "edited"}))
		assert.Equal(t, 0, records.created)
		assert.Equal(t, 1, records.updated)
	})

	t.Run("failure surfaces and skips the refresh", func(t *testing.T) {
		screen, records, _, _, _, reporter := setup(t)
		records.err = errors.New("save rejected")

		err := screen.SaveRecord(context.Background(), model.Record{Title: "x"})
		require.Error(t, err)
		assert.Equal(t, 0, records.listCalls)
		visible, _ := screen.VisibleError()
		assert.True(t, visible)
		assert.Contains(t, reporter.messages, "save rejected")
	})
}

func TestDeleteRecord(t *testing.T) {
	screen, records, _, _, _, _ := setup(t)
	require.NoError(t, screen.DeleteRecord(context.Background(), 4))
	assert.Equal(t, []int{4}, records.deleted)
	assert.Equal(t, 1, records.listCalls)
}

func TestSaveGroup(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		screen, _, groups, _, _, _ := setup(t)
		require.NoError(t, screen.SaveGroup(context.Background(), model.Group{Name: "Rock"}))
		assert.Equal(t, 1, groups.created)
	})

	t.Run("update", func(t *testing.T) {
		screen, _, groups, _, _, _ := setup(t)
		require.NoError(t, screen.SaveGroup(context.Background(), model.Group{ID: 2, Name: "Rock"}))
		assert.Equal(t, 1, groups.updated)
	})
}

func TestDeleteGroup(t *testing.T) {
	screen, _, groups, _, _, _ := setup(t)
	require.NoError(t, screen.DeleteGroup(context.Background(), 9))
	assert.Equal(t, []int{9}, groups.deleted)
}

type mockRecordGateway struct {
	list      []model.Record
	listFunc  func() ([]model.Record, error)
	err       error
	listCalls int
	created   int
	updated   int
	deleted   []int
}

func (m *mockRecordGateway) List(context.Context) ([]model.Record, error) {
	m.listCalls++
	if m.listFunc != nil {
		return m.listFunc()
	}
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.Record, len(m.list))
	copy(out, m.list)
	return out, nil
}

func (m *mockRecordGateway) Create(_ context.Context, r model.Record) (model.Record, error) {
	if m.err != nil {
		return model.Record{}, m.err
	}
	m.created++
	return r, nil
}

func (m *mockRecordGateway) Update(_ context.Context, r model.Record) (model.Record, error) {
	if m.err != nil {
		return model.Record{}, m.err
	}
	m.updated++
	return r, nil
}

func (m *mockRecordGateway) Delete(_ context.Context, id int) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockGroupGateway struct {
	list    []model.Group
	err     error
	created int
	updated int
	deleted []int
}

func (m *mockGroupGateway) List(context.Context) ([]model.Group, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.Group, len(m.list))
	copy(out, m.list)
	return out, nil
}

func (m *mockGroupGateway) Create(_ context.Context, g model.Group) (model.Group, error) {
	m.created++
	return g, nil
}

func (m *mockGroupGateway) Update(_ context.Context, g model.Group) (model.Group, error) {
	m.updated++
	return g, nil
}

func (m *mockGroupGateway) Delete(_ context.Context, id int) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockCartGateway struct {
	addErr    error
	removeErr error
	added     []string
	removed   []string
	records   []model.Record
}

func (m *mockCartGateway) Add(_ context.Context, email string, r model.Record) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, email)
	m.records = append(m.records, r)
	return nil
}

func (m *mockCartGateway) Remove(_ context.Context, email string, r model.Record) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, email)
	m.records = append(m.records, r)
	return nil
}

type stockUpdate struct {
	recordID int
	stock    int
}

type mockStockPublisher struct {
	updates []stockUpdate
}

func (m *mockStockPublisher) UpdateStock(recordID, stock int) {
	m.updates = append(m.updates, stockUpdate{recordID: recordID, stock: stock})
}

type mockReporter struct {
	messages []string
}

func (m *mockReporter) Report(message string) {
	m.messages = append(m.messages, message)
}

package courier

import (
	"context"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/pathao"
)

// --- Mock implementations ---

type mockClient struct {
	mu          sync.Mutex
	configured  bool
	cities      []pathao.City
	zones       map[int][]pathao.Zone
	zoneErr     map[int]error
	areas       map[int][]pathao.Area
	result      *pathao.ParcelResult
	createErr   error
	onCreate    func()
	requests    []pathao.ParcelRequest
	statuses    map[string]string
	areaFetches int
}

func (m *mockClient) Configured() bool { return m.configured }

func (m *mockClient) GetCities(context.Context) ([]pathao.City, error) {
	return m.cities, nil
}

func (m *mockClient) GetZones(_ context.Context, cityID int) ([]pathao.Zone, error) {
	if err := m.zoneErr[cityID]; err != nil {
		return nil, err
	}
	return m.zones[cityID], nil
}

func (m *mockClient) GetAreas(_ context.Context, zoneID int) ([]pathao.Area, error) {
	m.areaFetches++
	return m.areas[zoneID], nil
}

func (m *mockClient) CreateOrder(_ context.Context, req pathao.ParcelRequest) (*pathao.ParcelResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.onCreate != nil {
		m.onCreate()
	}
	return m.result, m.createErr
}

func (m *mockClient) GetOrderStatus(_ context.Context, id string) (*pathao.OrderInfo, error) {
	s, ok := m.statuses[id]
	if !ok {
		return nil, &pathao.APIError{Status: 404, Message: "Not Found"}
	}
	return &pathao.OrderInfo{ConsignmentID: id, OrderStatus: s}, nil
}

type mockOrders struct {
	byID map[int64]*order.Order
}

func (m *mockOrders) Get(_ context.Context, id int64) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrders) ListTrackable(context.Context) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		if o.Courier.Sent && o.Courier.ConsignmentID != "" {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrders) MarkSent(_ context.Context, id int64, consignmentID, status string) error {
	o, ok := m.byID[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Courier.Sent {
		return ErrAlreadySent
	}
	o.Courier.Sent = true
	o.Courier.ConsignmentID = consignmentID
	o.Courier.Status = status
	return nil
}

func (m *mockOrders) SetCourierStatus(_ context.Context, id int64, status string) error {
	m.byID[id].Courier.Status = status
	return nil
}

type mockLocations struct {
	mu     sync.Mutex
	cities map[int]City
	zones  map[int]Zone
	areas  map[int]Area
}

func newMockLocations() *mockLocations {
	return &mockLocations{
		cities: make(map[int]City),
		zones:  make(map[int]Zone),
		areas:  make(map[int]Area),
	}
}

func (m *mockLocations) UpsertCity(_ context.Context, c City) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.cities[c.ID]
	m.cities[c.ID] = c
	return !exists, nil
}

func (m *mockLocations) UpsertZone(_ context.Context, z Zone) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.zones[z.ID]
	m.zones[z.ID] = z
	return !exists, nil
}

func (m *mockLocations) UpsertArea(_ context.Context, a Area) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.areas[a.ID]
	m.areas[a.ID] = a
	return !exists, nil
}

func (m *mockLocations) ListCities(context.Context) ([]City, error) {
	var out []City
	for _, c := range m.cities {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockLocations) ListZones(_ context.Context, cityID int) ([]Zone, error) {
	var out []Zone
	for _, z := range m.zones {
		if z.CityID == cityID {
			out = append(out, z)
		}
	}
	return out, nil
}

func (m *mockLocations) ListAreas(_ context.Context, zoneID int) ([]Area, error) {
	var out []Area
	for _, a := range m.areas {
		if a.ZoneID == zoneID {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- Helpers ---

func newOrder(id int64, method order.PaymentMethod) *order.Order {
	return &order.Order{
		ID:            id,
		FirstName:     "Nusrat",
		LastName:      "Jahan",
		Phone:         "01712345678",
		Address:       "House 4, Road 7",
		City:          "Chattogram",
		ShippingZone:  order.ZoneOutsideDhaka,
		ShippingCost:  order.ZoneOutsideDhaka.Cost(),
		PaymentMethod: method,
		Items: []order.Item{
			{ProductName: "Ring", Price: decimal.NewFromInt(1000), Quantity: 2},
			{ProductName: "Bangle", Price: decimal.NewFromInt(500), Quantity: 1},
		},
	}
}

var testConfig = Config{StoreID: 42, SenderName: "Foxy Glamour", SenderPhone: "01800000000"}

// --- Tests ---

func TestCityIDFromName(t *testing.T) {
	tests := map[string]int{
		"Dhaka":        1,
		"  CHATTOGRAM ": 2,
		"chittagong":   2,
		"Mymensingh":   8,
		"Cox's Bazar":  1,
		"":             1,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, CityIDFromName(name))
		})
	}
}

func TestBuildParcel(t *testing.T) {
	t.Run("COD", func(t *testing.T) {
		p := BuildParcel(newOrder(7, order.PaymentCOD), testConfig)

		assert.Equal(t, 42, p.StoreID)
		assert.Equal(t, "7", p.MerchantOrderID)
		assert.Equal(t, "Nusrat Jahan", p.RecipientName)
		assert.Equal(t, 2, p.RecipientCity)
		assert.Equal(t, 1, p.RecipientZone)
		assert.Equal(t, 1, p.RecipientArea)
		assert.Equal(t, 48, p.DeliveryType)
		assert.Equal(t, 2, p.ItemType)
		assert.Equal(t, 0.5, p.ItemWeight)
		assert.Equal(t, 3, p.ItemQuantity)
		assert.Equal(t, "Ring x2, Bangle x1", p.ItemDescription)
		assert.Equal(t, "Order #7", p.SpecialInstruction)
		assert.Equal(t, 2650.0, p.AmountToCollect)
	})

	t.Run("PrepaidCollectsNothing", func(t *testing.T) {
		o := newOrder(7, order.PaymentBkash)
		city, zone := 5, 77
		o.Courier.CityID = &city
		o.Courier.ZoneID = &zone

		p := BuildParcel(o, testConfig)
		assert.Equal(t, 0.0, p.AmountToCollect)
		assert.Equal(t, 5, p.RecipientCity)
		assert.Equal(t, 77, p.RecipientZone)
	})

	t.Run("DescriptionTruncated", func(t *testing.T) {
		o := newOrder(7, order.PaymentCOD)
		o.Items = []order.Item{{ProductName: strings.Repeat("হীরা", 200), Quantity: 1}}

		p := BuildParcel(o, testConfig)
		assert.Equal(t, 500, utf8.RuneCountInString(p.ItemDescription))
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		client := &mockClient{configured: true, result: &pathao.ParcelResult{Type: "success", ConsignmentID: "DL1"}}
		orders := &mockOrders{byID: map[int64]*order.Order{7: newOrder(7, order.PaymentCOD)}}
		d := NewDispatcher(client, orders, newMockLocations(), testConfig)

		require.NoError(t, d.Send(ctx, 7))
		c := orders.byID[7].Courier
		assert.True(t, c.Sent)
		assert.Equal(t, "DL1", c.ConsignmentID)
		assert.Equal(t, "Pending", c.Status)

		assert.ErrorIs(t, d.Send(ctx, 7), ErrAlreadySent)
		assert.Len(t, client.requests, 1)
	})

	t.Run("Rejected", func(t *testing.T) {
		client := &mockClient{configured: true, result: &pathao.ParcelResult{Type: "error", Message: "Invalid zone"}}
		orders := &mockOrders{byID: map[int64]*order.Order{7: newOrder(7, order.PaymentCOD)}}
		d := NewDispatcher(client, orders, newMockLocations(), testConfig)

		var rErr *RejectedError
		require.True(t, errors.As(d.Send(ctx, 7), &rErr))
		assert.Equal(t, "Invalid zone", rErr.Message)
		assert.False(t, orders.byID[7].Courier.Sent)
	})

	t.Run("ConcurrentSendWins", func(t *testing.T) {
		o := newOrder(7, order.PaymentCOD)
		orders := &mockOrders{byID: map[int64]*order.Order{7: o}}
		client := &mockClient{configured: true, result: &pathao.ParcelResult{Type: "success", ConsignmentID: "DL2"}}
		// The other request marks the order between our read and our write.
		client.onCreate = func() {
			o.Courier.Sent = true
			o.Courier.ConsignmentID = "DL1"
		}
		d := NewDispatcher(client, orders, newMockLocations(), testConfig)

		assert.ErrorIs(t, d.Send(ctx, 7), ErrAlreadySent)
		assert.Equal(t, "DL1", o.Courier.ConsignmentID)
		assert.Len(t, client.requests, 1)
	})

	t.Run("NotConfigured", func(t *testing.T) {
		d := NewDispatcher(&mockClient{}, &mockOrders{}, newMockLocations(), testConfig)
		assert.ErrorIs(t, d.Send(ctx, 7), ErrNotConfigured)
	})
}

func TestSendMany(t *testing.T) {
	sent := newOrder(1, order.PaymentCOD)
	sent.Courier.Sent = true
	client := &mockClient{configured: true, result: &pathao.ParcelResult{Type: "success", ConsignmentID: "DL2", OrderStatus: "Pickup_Requested"}}
	orders := &mockOrders{byID: map[int64]*order.Order{1: sent, 2: newOrder(2, order.PaymentCOD)}}
	d := NewDispatcher(client, orders, newMockLocations(), testConfig)

	results := d.SendMany(context.Background(), []int64{1, 2, 3})
	require.Len(t, results, 3)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
	assert.Equal(t, OutcomeSent, results[1].Outcome)
	assert.Equal(t, OutcomeFailed, results[2].Outcome)
	assert.Contains(t, results[2].Message, "Order #3")
	assert.Equal(t, "Pickup_Requested", orders.byID[2].Courier.Status)
}

func TestRefreshStatuses(t *testing.T) {
	a := newOrder(1, order.PaymentCOD)
	a.Courier = order.Courier{Sent: true, ConsignmentID: "DL1", Status: "Pending"}
	b := newOrder(2, order.PaymentCOD)
	b.Courier = order.Courier{Sent: true, ConsignmentID: "DL2", Status: "Pending"}
	unsent := newOrder(3, order.PaymentCOD)

	client := &mockClient{configured: true, statuses: map[string]string{"DL1": "Delivered"}}
	orders := &mockOrders{byID: map[int64]*order.Order{1: a, 2: b, 3: unsent}}
	d := NewDispatcher(client, orders, newMockLocations(), testConfig)

	res, err := d.RefreshStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Updated: 1, Failed: 1}, res)
	assert.Equal(t, "Delivered", orders.byID[1].Courier.Status)
	assert.Equal(t, "Pending", orders.byID[2].Courier.Status)
}

func TestSyncLocations(t *testing.T) {
	newClient := func() *mockClient {
		return &mockClient{
			configured: true,
			cities:     []pathao.City{{ID: 1, Name: "Dhaka"}, {ID: 2, Name: "Chittagong"}, {ID: 3, Name: "Rajshahi"}},
			zones: map[int][]pathao.Zone{
				1: {{ID: 10, Name: "Gulshan"}, {ID: 11, Name: "Banani"}},
				2: {{ID: 20, Name: "Agrabad"}},
			},
			zoneErr: map[int]error{3: errors.New("boom")},
		}
	}

	t.Run("All", func(t *testing.T) {
		locs := newMockLocations()
		locs.cities[1] = City{ID: 1, Name: "Old"}
		d := NewDispatcher(newClient(), &mockOrders{}, locs, testConfig)

		res, err := d.SyncLocations(context.Background(), SyncOptions{})
		require.NoError(t, err)
		assert.Equal(t, SyncResult{
			CitiesCreated: 2,
			CitiesUpdated: 1,
			ZonesCreated:  3,
			ZonesFailed:   1,
		}, res)
		assert.Equal(t, "Dhaka", locs.cities[1].Name)
		assert.Equal(t, 2, locs.zones[20].CityID)
	})

	t.Run("CitiesOnly", func(t *testing.T) {
		locs := newMockLocations()
		d := NewDispatcher(newClient(), &mockOrders{}, locs, testConfig)

		res, err := d.SyncLocations(context.Background(), SyncOptions{CitiesOnly: true})
		require.NoError(t, err)
		assert.Equal(t, 3, res.CitiesCreated)
		assert.Empty(t, locs.zones)
	})

	t.Run("SingleCity", func(t *testing.T) {
		locs := newMockLocations()
		d := NewDispatcher(newClient(), &mockOrders{}, locs, testConfig)

		res, err := d.SyncLocations(context.Background(), SyncOptions{CityID: 2})
		require.NoError(t, err)
		assert.Equal(t, 1, res.ZonesCreated)
		assert.Len(t, locs.zones, 1)
	})
}

func TestAreasFetchedOnce(t *testing.T) {
	client := &mockClient{
		configured: true,
		areas:      map[int][]pathao.Area{10: {{ID: 100, Name: "Road 11"}}},
	}
	locs := newMockLocations()
	d := NewDispatcher(client, &mockOrders{}, locs, testConfig)
	ctx := context.Background()

	areas, err := d.Areas(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []Area{{ID: 100, Name: "Road 11", ZoneID: 10, IsActive: true}}, areas)

	_, err = d.Areas(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, client.areaFetches)
}

package pathao

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	tokenCalls atomic.Int32
	expiresIn  string
	lastBody   []byte
	mu         sync.Mutex
	routes     map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		expiresIn: "3600",
		routes:    make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lastBody = body
		f.mu.Unlock()

		if r.URL.Path == apiPrefix+"/issue-token" {
			f.tokenCalls.Add(1)
			_, _ = io.WriteString(w, `{"token_type":"Bearer","expires_in":`+f.expiresIn+`,"access_token":"tok"}`)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Unauthenticated."}`)
			return
		}
		h, ok := f.routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) body() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	return New(srv.URL, Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		Username:     "merchant@example.com",
		Password:     "pw",
	}, opts...)
}

func TestTokenCache(t *testing.T) {
	f, srv := newFakeAPI(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClient(srv, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.Token(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "tok", tok)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), f.tokenCalls.Load())

	// Renewed one minute before expiry.
	now = now.Add(58 * time.Minute)
	_, err := c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenCalls.Load())

	now = now.Add(time.Minute)
	_, err = c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestTokenRequest(t *testing.T) {
	f, srv := newFakeAPI(t)
	c := newTestClient(srv)

	_, err := c.Token(context.Background())
	require.NoError(t, err)

	fields := map[string]string{}
	require.NoError(t, jx.DecodeBytes(f.body()).Obj(func(d *jx.Decoder, key string) error {
		v, err := d.Str()
		fields[key] = v
		return err
	}))
	assert.Equal(t, map[string]string{
		"client_id":     "id",
		"client_secret": "secret",
		"username":      "merchant@example.com",
		"password":      "pw",
		"grant_type":    "password",
	}, fields)
}

func TestGetCities(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.routes["GET "+apiPrefix+"/countries/1/city-list"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"City successfully fetched.","type":"success","code":200,
			"data":{"data":[{"city_id":1,"city_name":"Dhaka"},{"city_id":"2","city_name":"Chittagong","extra":{"a":1}}]}}`)
	}
	c := newTestClient(srv)

	cities, err := c.GetCities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []City{{ID: 1, Name: "Dhaka"}, {ID: 2, Name: "Chittagong"}}, cities)
}

func TestGetZonesAndAreas(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.routes["GET "+apiPrefix+"/cities/1/zone-list"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"data":[{"zone_id":298,"zone_name":"60 feet"}]}}`)
	}
	f.routes["GET "+apiPrefix+"/zones/298/area-list"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"data":[{"area_id":37,"area_name":"Bonolota","home_delivery_available":true,"pickup_available":false}]}}`)
	}
	f.routes["GET "+apiPrefix+"/stores"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"data":[{"store_id":"42","store_name":"Main","is_active":1,"is_default_store":true}]}}`)
	}
	c := newTestClient(srv)
	ctx := context.Background()

	zones, err := c.GetZones(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []Zone{{ID: 298, Name: "60 feet"}}, zones)

	areas, err := c.GetAreas(ctx, 298)
	require.NoError(t, err)
	assert.Equal(t, []Area{{ID: 37, Name: "Bonolota", HomeDeliveryAvailable: true}}, areas)

	stores, err := c.GetStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, 42, stores[0].ID)
	assert.True(t, stores[0].IsActive)
	assert.True(t, stores[0].IsDefault)
}

func TestCreateOrder(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.routes["POST "+apiPrefix+"/orders"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"Order Created Successfully","type":"success","code":200,
			"data":{"consignment_id":"DL121224VS8TTJ","merchant_order_id":"7","order_status":"Pending","delivery_fee":80}}`)
	}
	c := newTestClient(srv)

	res, err := c.CreateOrder(context.Background(), ParcelRequest{
		StoreID:         42,
		MerchantOrderID: "7",
		RecipientCity:   1,
		DeliveryType:    48,
		ItemWeight:      0.5,
		AmountToCollect: 1270,
	})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "DL121224VS8TTJ", res.ConsignmentID)
	assert.Equal(t, "Pending", res.OrderStatus)
	assert.Equal(t, 80.0, res.DeliveryFee)

	got := map[string]string{}
	require.NoError(t, jx.DecodeBytes(f.body()).Obj(func(d *jx.Decoder, key string) error {
		raw, err := d.Raw()
		got[key] = raw.String()
		return err
	}))
	assert.Equal(t, "42", got["store_id"])
	assert.Equal(t, `"7"`, got["merchant_order_id"])
	assert.Equal(t, "48", got["delivery_type"])
	assert.Equal(t, "0.5", got["item_weight"])
	assert.Equal(t, "1270", got["amount_to_collect"])
}

func TestGetOrderStatus(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.routes["GET "+apiPrefix+"/orders/DL1"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"type":"success","data":{"consignment_id":"DL1","order_status":"Delivered","updated_at":"2026-01-02 10:00:00"}}`)
	}
	c := newTestClient(srv)

	info, err := c.GetOrderStatus(context.Background(), "DL1")
	require.NoError(t, err)
	assert.Equal(t, "Delivered", info.OrderStatus)
}

func TestAPIError(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.routes["POST "+apiPrefix+"/orders"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"Please fix the given errors","type":"error","code":422}`)
	}
	c := newTestClient(srv)

	_, err := c.CreateOrder(context.Background(), ParcelRequest{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Please fix the given errors", apiErr.Message)

	_, err = c.GetOrderStatus(context.Background(), "missing")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Not Found", apiErr.Message)
}

func TestUnauthorizedResetsToken(t *testing.T) {
	f, srv := newFakeAPI(t)
	c := newTestClient(srv)
	ctx := context.Background()

	_, err := c.Token(ctx)
	require.NoError(t, err)
	c.mu.Lock()
	c.token = "stale"
	c.mu.Unlock()

	_, err = c.GetCities(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestConfigured(t *testing.T) {
	assert.False(t, New("http://x", Credentials{}).Configured())
	assert.True(t, New("http://x", Credentials{ClientID: "a", ClientSecret: "b", Username: "c", Password: "d"}).Configured())
}

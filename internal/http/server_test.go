package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/export"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
	"subtrack/internal/storage/memory"
	"subtrack/internal/store"
)

var testNow = time.Date(2024, 2, 12, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	mem   *memory.Store
	store *store.Store
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	mem := memory.New()
	st := store.New(mem,
		store.WithClock(func() time.Time { return testNow }),
		store.WithLogger(log.Discard()),
	)
	opts := Options{
		Store:              st,
		Exporter:           export.NewExporter(st, nil),
		Logger:             log.Discard(),
		RateLimitPerMinute: 1000,
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv := NewServer(":0", opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, mem: mem, store: st}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

type subscriptionJSON struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	IsActive     bool    `json:"isActive"`
	RenewalDate  string  `json:"renewalDate"`
	BillingCycle string  `json:"billingCycle"`
}

type listResponse struct {
	Subscriptions []subscriptionJSON `json:"subscriptions"`
	Count         int                `json:"count"`
	Warning       string             `json:"warning"`
}

type itemResponse struct {
	Subscription subscriptionJSON `json:"subscription"`
	Warning      string           `json:"warning"`
	Error        string           `json:"error"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func names(subs []subscriptionJSON) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.Name
	}
	return out
}

const newSubscription = `{
	"name": "YouTube Premium",
	"price": 26.99,
	"currency": "SAR",
	"billingCycle": "monthly",
	"renewalDate": "2024-02-13",
	"category": "Video",
	"paymentMethod": "Visa",
	"isActive": true,
	"color": "#FF0000"
}`

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	}

	notReady := newTestEnv(t, func(o *Options) {
		o.Ready = func(context.Context) error { return errors.New("db down") }
	})
	assert.Equal(t, http.StatusServiceUnavailable, notReady.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestListSubscriptions(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/subscriptions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[listResponse](t, rr)
	assert.Equal(t, []string{"Adobe Creative Cloud", "Netflix", "Spotify"}, names(list.Subscriptions))
	assert.Equal(t, 3, list.Count)

	rr = env.do(t, http.MethodGet, "/api/subscriptions/all", "")
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[listResponse](t, rr)
	assert.Equal(t, []string{"Netflix", "Spotify", "Adobe Creative Cloud"}, names(all.Subscriptions))
}

func TestGetSubscription(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/subscriptions/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Netflix", decode[itemResponse](t, rr).Subscription.Name)

	rr = env.do(t, http.MethodGet, "/api/subscriptions/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "subscription not found", decode[itemResponse](t, rr).Error)
}

func TestCreateSubscription(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/subscriptions", newSubscription)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[itemResponse](t, rr).Subscription
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "YouTube Premium", created.Name)
	assert.Equal(t, "2024-02-13", created.RenewalDate)
	assert.Equal(t, "/api/subscriptions/"+created.ID, rr.Header().Get("Location"))
	assert.Empty(t, rr.Header().Get(PersistWarningHeader))
	assert.Equal(t, 1, env.mem.Saves())

	got, ok := env.store.Subscription(created.ID)
	require.True(t, ok)
	assert.Equal(t, "CreditCard", got.Icon, "missing icon falls back to the default")
}

func TestCreateSubscription_DefaultsToActive(t *testing.T) {
	env := newTestEnv(t, nil)
	body := strings.Replace(newSubscription, `"isActive": true,`, "", 1)
	require.NotContains(t, body, "isActive")

	rr := env.do(t, http.MethodPost, "/api/subscriptions", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.True(t, decode[itemResponse](t, rr).Subscription.IsActive)

	rr = env.do(t, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var summary struct {
		TotalMonthly float64 `json:"totalMonthly"`
		ActiveCount  int     `json:"activeCount"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, 296.96, summary.TotalMonthly)
	assert.Equal(t, 4, summary.ActiveCount)

	rr = env.do(t, http.MethodGet, "/api/renewals?days=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "YouTube Premium")

	paused := strings.Replace(newSubscription, `"isActive": true`, `"isActive": false`, 1)
	rr = env.do(t, http.MethodPost, "/api/subscriptions", paused)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.False(t, decode[itemResponse](t, rr).Subscription.IsActive, "an explicit false is kept")
}

func TestCreateSubscription_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "negative price", body: strings.Replace(newSubscription, "26.99", "-1", 1), want: http.StatusUnprocessableEntity},
		{name: "blank name", body: strings.Replace(newSubscription, "YouTube Premium", "  ", 1), want: http.StatusUnprocessableEntity},
		{name: "weekly cycle", body: strings.Replace(newSubscription, `"monthly"`, `"weekly"`, 1), want: http.StatusUnprocessableEntity},
		{name: "bad date", body: strings.Replace(newSubscription, "2024-02-13", "13/02/2024", 1), want: http.StatusBadRequest},
		{name: "unknown field", body: `{"name":"x","bogus":1}`, want: http.StatusBadRequest},
		{name: "malformed", body: `{"name":`, want: http.StatusBadRequest},
		{name: "trailing data", body: newSubscription + `{}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rr := env.do(t, http.MethodPost, "/api/subscriptions", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decode[itemResponse](t, rr).Error)
			assert.Len(t, env.store.Subscriptions(), 3)
			assert.Zero(t, env.mem.Saves())
		})
	}
}

func TestUpdateSubscription(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPatch, "/api/subscriptions/1", `{"price": 59.99}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[itemResponse](t, rr).Subscription
	assert.Equal(t, 59.99, updated.Price)
	assert.Equal(t, "Netflix", updated.Name)

	rr = env.do(t, http.MethodPatch, "/api/subscriptions/missing", `{"price": 1}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = env.do(t, http.MethodPatch, "/api/subscriptions/1", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(t, http.MethodPatch, "/api/subscriptions/1", `{"billingCycle": "daily"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestToggleAndDelete(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/subscriptions/2/toggle", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[itemResponse](t, rr).Subscription.IsActive)

	rr = env.do(t, http.MethodPost, "/api/subscriptions/missing/toggle", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/subscriptions/3", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/subscriptions/3", "").Code)

	rr = env.do(t, http.MethodDelete, "/api/subscriptions/3", "")
	assert.Equal(t, http.StatusNoContent, rr.Code, "deleting an absent id is a no-op")
}

func TestFilter(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPut, "/api/filter", `{"sortBy": "price", "sortOrder": "desc"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	list := decode[listResponse](t, rr)
	assert.Equal(t, []string{"Adobe Creative Cloud", "Netflix", "Spotify"}, names(list.Subscriptions))

	rr = env.do(t, http.MethodPut, "/api/filter", `{"searchTerm": "SPOT"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"Spotify"}, names(decode[listResponse](t, rr).Subscriptions))

	f := env.store.Filter()
	assert.Equal(t, "SPOT", f.SearchTerm)
	assert.Equal(t, "price", string(f.SortBy), "fields absent from the body are kept")

	rr = env.do(t, http.MethodGet, "/api/filter", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"searchTerm":"SPOT"`)

	rr = env.do(t, http.MethodPut, "/api/filter", `{"sortBy": "color"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	rr = env.do(t, http.MethodPut, "/api/filter", `{"sortOrder": "up"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestSummaryAndCategories(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var summary struct {
		TotalMonthly float64 `json:"totalMonthly"`
		TotalYearly  float64 `json:"totalYearly"`
		ActiveCount  int     `json:"activeCount"`
		Categories   []struct {
			Name  string  `json:"name"`
			Total float64 `json:"total"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, 269.97, summary.TotalMonthly)
	assert.Equal(t, 3239.64, summary.TotalYearly)
	assert.Equal(t, 3, summary.ActiveCount)
	require.Len(t, summary.Categories, 3)
	assert.Equal(t, 199.99, summary.Categories[0].Total)

	rr = env.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"suggested"`)
}

func TestRenewals(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/renewals", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Today    string `json:"today"`
		Days     int    `json:"days"`
		Renewals []struct {
			Subscription subscriptionJSON `json:"subscription"`
			DaysUntil    int              `json:"daysUntil"`
			Urgency      string           `json:"urgency"`
		} `json:"renewals"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "2024-02-12", body.Today)
	assert.Equal(t, 7, body.Days)
	require.Len(t, body.Renewals, 1)
	assert.Equal(t, "Netflix", body.Renewals[0].Subscription.Name)
	assert.Equal(t, 3, body.Renewals[0].DaysUntil)
	assert.Equal(t, "urgent", body.Renewals[0].Urgency)

	rr = env.do(t, http.MethodGet, "/api/renewals?days=8", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Spotify")

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/renewals?days=soon", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/renewals?days=-1", "").Code)
}

func TestPersistFailureIsAWarning(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mem.FailSaves(errors.New("disk full"))

	rr := env.do(t, http.MethodPost, "/api/subscriptions", newSubscription)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Header().Get(PersistWarningHeader), "disk full")
	assert.Contains(t, decode[itemResponse](t, rr).Warning, "disk full")
	assert.Len(t, env.store.Subscriptions(), 4, "mutation is kept in memory")

	rr = env.do(t, http.MethodDelete, "/api/subscriptions/1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(PersistWarningHeader))
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/export.xlsx", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "subscriptions-2024-02-12.xlsx")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "PK"), "xlsx is a zip archive")

	noExport := newTestEnv(t, func(o *Options) { o.Exporter = nil })
	assert.Equal(t, http.StatusNotFound, noExport.do(t, http.MethodGet, "/api/export.xlsx", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	env := newTestEnv(t, func(o *Options) { o.Metrics = m })

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/subscriptions/none", "").Code)

	rr := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `subtrack_http_requests_total{method="GET",route="GET /healthz",status="200"} 1`)
	assert.Contains(t, body, `route="GET /api/subscriptions/{id}",status="404"`)
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	var logs bytes.Buffer
	env := newTestEnv(t, func(o *Options) {
		o.RateLimitPerMinute = 1
		o.Logger = log.New(log.Config{Output: &logs})
	})

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/subscriptions", newSubscription).Code)
	rr := env.do(t, http.MethodPost, "/api/subscriptions", newSubscription)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "rate limit")
	assert.Contains(t, logs.String(), "component=rate_limit")
	assert.Contains(t, logs.String(), "Rate limit exceeded")

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/subscriptions", "").Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/nothing", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodPut, "/api/summary", "").Code)
}

package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/core"
	"chitieu/internal/intake"
	"chitieu/internal/kv/memory"
	"chitieu/internal/log"
	"chitieu/internal/metrics"
	"chitieu/internal/store"
)

var fixedNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	store *store.Store
	kv    *memory.Store
}

func newTestEnv(t *testing.T, writeLimit int) *testEnv {
	t.Helper()
	bs := memory.New()
	clock := func() time.Time { return fixedNow }
	st := store.New(bs, store.WithClock(clock))
	srv, err := NewServer(":0", Deps{
		Store:      st,
		Intake:     intake.New(st, log.Discard()),
		Logger:     log.Discard(),
		Metrics:    metrics.NewCollector("chitieu"),
		Location:   time.UTC,
		WriteLimit: writeLimit,
		Now:        clock,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: st, kv: bs}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	// A failed write keeps the record in memory but marks the store degraded
	env.kv.Disable()
	rr = env.do(t, jsonRequest(http.MethodPost, "/records", `{"amount":1000,"category":"food"}`))
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	env.kv.Enable()
	rr = env.do(t, jsonRequest(http.MethodPost, "/records", `{"amount":"2000","category":"food"}`))
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateRecordJSON(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, jsonRequest(http.MethodPost, "/records", `{"amount":50000,"category":"Food","note":" phở "}`))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.NotEmpty(t, got["id"])
	assert.Equal(t, float64(50000), got["amount"])
	assert.Equal(t, "food", got["category"])
	assert.Equal(t, "phở", got["note"])
	assert.Equal(t, "2024-05-15T10:00:00.000Z", got["date"])
	assert.Equal(t, "/records/"+got["id"].(string), rr.Header().Get("Location"))
	assert.Equal(t, 1, env.store.Len())
}

func TestCreateRecordValidation(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, jsonRequest(http.MethodPost, "/records", `{"amount":"-5","category":""}`))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var body struct {
		Errors []intake.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	codes := map[string]string{}
	for _, f := range body.Errors {
		codes[f.Field] = f.Code
	}
	assert.Equal(t, map[string]string{"amount": intake.CodeInvalidAmount, "category": intake.CodeInvalidCategory}, codes)
	assert.Zero(t, env.store.Len(), "invalid input must not reach the store")

	rr = env.do(t, jsonRequest(http.MethodPost, "/records", `{"amount":`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateRecordForm(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, formRequest("/records", url.Values{"amount": {"20000"}, "category": {"transport"}}))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Equal(t, 1, env.store.Len())

	rr = env.do(t, formRequest("/records", url.Values{"amount": {"abc"}, "category": {"transport"}, "note": {"xăng"}}))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "amount must be a number greater than zero")
	assert.Contains(t, rr.Body.String(), `value="xăng"`)
	assert.Equal(t, 1, env.store.Len())
}

func TestListAndDelete(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	first, err := intake.New(env.store, nil).Submit(ctx, intake.Input{Amount: "50000", Category: "food"})
	require.NoError(t, err)
	_, err = intake.New(env.store, nil).Submit(ctx, intake.Input{Amount: "20000", Category: "transport"})
	require.NoError(t, err)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/records?window=today", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Count   int     `json:"count"`
		Total   float64 `json:"total"`
		Records []struct {
			ID       string `json:"id"`
			Category string `json:"category"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, float64(70000), list.Total)
	require.Len(t, list.Records, 2)
	assert.Equal(t, "transport", list.Records[0].Category, "newest first")

	rr = env.do(t, httptest.NewRequest(http.MethodDelete, "/records/"+first.ID, nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, httptest.NewRequest(http.MethodDelete, "/records/"+first.ID, nil))
	assert.Equal(t, http.StatusNoContent, rr.Code, "delete is idempotent")
	assert.Equal(t, 1, env.store.Len())

	rr = env.do(t, httptest.NewRequest(http.MethodDelete, "/records", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, env.store.Len())

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/records?window=fortnight", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteFromHTMLForm(t *testing.T) {
	env := newTestEnv(t, 0)
	rec, err := intake.New(env.store, nil).Submit(context.Background(), intake.Input{Amount: "1", Category: "other"})
	require.NoError(t, err)

	rr := env.do(t, formRequest("/records/"+rec.ID+"/delete", url.Values{}))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Zero(t, env.store.Len())
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	in := intake.New(env.store, nil)
	_, _ = in.Submit(ctx, intake.Input{Amount: "50000", Category: "food"})
	_, _ = in.Submit(ctx, intake.Input{Amount: "20000", Category: "transport"})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/summary?window=today&top=1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var sum struct {
		Total     float64            `json:"total"`
		Breakdown map[string]float64 `json:"breakdown"`
		Top       []struct {
			Category string  `json:"category"`
			Sum      float64 `json:"sum"`
		} `json:"top"`
		Projected *float64 `json:"projected"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	assert.Equal(t, float64(70000), sum.Total)
	assert.Equal(t, map[string]float64{"food": 50000, "transport": 20000}, sum.Breakdown)
	require.Len(t, sum.Top, 1)
	assert.Equal(t, "food", sum.Top[0].Category)
	assert.Nil(t, sum.Projected)

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/summary?window=month", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	require.NotNil(t, sum.Projected)

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/summary?top=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// racingStore appends one record right after handing out a snapshot, like a
// write landing between a read and the response.
type racingStore struct {
	*store.Store
	pending []core.Candidate
}

func (r *racingStore) Snapshot() []core.Record {
	snap := r.Store.Snapshot()
	if len(r.pending) > 0 {
		c := r.pending[0]
		r.pending = r.pending[1:]
		_, _ = r.Store.Append(context.Background(), c)
	}
	return snap
}

func TestSummaryReflectsWritesBetweenRequests(t *testing.T) {
	clock := func() time.Time { return fixedNow }
	st := store.New(memory.New(), store.WithClock(clock))
	_, err := st.Append(context.Background(), core.Candidate{Amount: decimal.NewFromInt(50000), Category: core.Food})
	require.NoError(t, err)

	rs := &racingStore{Store: st, pending: []core.Candidate{{Amount: decimal.NewFromInt(20000), Category: core.Transport}}}
	srv, err := NewServer(":0", Deps{
		Store:    rs,
		Intake:   intake.New(st, log.Discard()),
		Logger:   log.Discard(),
		Location: time.UTC,
		Now:      clock,
	})
	require.NoError(t, err)

	total := func() string {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/summary?window=today", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var sum struct {
			Total json.Number `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
		return sum.Total.String()
	}

	assert.Equal(t, "50000", total())
	require.Equal(t, 2, st.Len())
	assert.Equal(t, "70000", total())

	env := newTestEnv(t, 0)
	rr := env.do(t, jsonRequest(http.MethodPost, "/records", `{"amount":15000,"category":"food"}`))
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = env.do(t, httptest.NewRequest(http.MethodDelete, "/records", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/summary?window=today", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":0`)
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t, 0)
	_, _ = intake.New(env.store, nil).Submit(context.Background(), intake.Input{Amount: "50000", Category: "food", Note: "=cmd"})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/export.csv?window=all", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "chitieu-all.csv")
	body, _ := io.ReadAll(rr.Body)
	lines := strings.Split(strings.TrimPrefix(string(body), "\ufeff"), "\n")
	assert.Equal(t, "id,date,time,category,category_label,amount,amount_formatted,note", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "'=cmd")
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, 0)
	_, _ = intake.New(env.store, nil).Submit(context.Background(), intake.Input{Amount: "50000", Category: "food", Note: "<b>bún</b>"})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Chi tiêu gia đình")
	assert.Contains(t, body, "&lt;b&gt;bún&lt;/b&gt;")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNotFoundAndMetrics(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `chitieu_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestWriteRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)

	for i := 0; i < 2; i++ {
		rr := env.do(t, jsonRequest(http.MethodPost, "/records", `{"amount":1,"category":"food"}`))
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := env.do(t, jsonRequest(http.MethodPost, "/records", `{"amount":1,"category":"food"}`))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Reads are never limited
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/records", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewServerRequiresStore(t *testing.T) {
	_, err := NewServer(":0", Deps{})
	assert.Error(t, err)
}

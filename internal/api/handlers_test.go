package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recares/dme-matcher/internal/matching"
	"github.com/recares/dme-matcher/internal/notify"
	"github.com/recares/dme-matcher/internal/pkg/distlock"
	"github.com/recares/dme-matcher/internal/pkg/httputil"
	"github.com/recares/dme-matcher/internal/repository/memory"
	"github.com/recares/dme-matcher/internal/service/listings"
)

const optInLabel = "Would you like to receive notifications?"

var (
	testNow    = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	testSheets = listings.Sheets{Main: "Large DME Form", OptOut: "Opt Out"}
)

func mainHeader() []string {
	return []string{
		"Timestamp", "Email Address", "Donate or Receive", "First Name", "Last Name",
		"City", "Phone", "OK to share phone?", "Item to donate", "Item needed",
		"Condition", optInLabel, "Terms",
	}
}

type testServer struct {
	router http.Handler
	repo   *memory.SheetRepo
	ch     *notify.RecordingChannel
}

func newTestServer(t *testing.T, token string) *testServer {
	t.Helper()
	composer, err := notify.NewComposer(notify.Links{OptOutForm: "https://o", SubmissionForm: "https://s"}, "sig")
	require.NoError(t, err)

	ts := &testServer{repo: memory.NewSheetRepo(), ch: &notify.RecordingChannel{}}
	ts.repo.Seed(testSheets.Main, mainHeader())

	svc := listings.NewService(ts.repo, notify.NewDispatcher(composer, ts.ch), distlock.NewFactory(nil, nil, 0), listings.Options{
		Sheets:     testSheets,
		Rules:      matching.DefaultRules(),
		OptInLabel: optInLabel,
		Now:        func() time.Time { return testNow },
	})
	ts.router = SetupRoutes(NewHandlers(svc, testSheets), NewHealthChecker(nil, nil), RouteConfig{IntakeToken: token})
	return ts
}

func (ts *testServer) post(t *testing.T, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func offerValues(email, item string) []string {
	return []string{"", email, "Donate", "Ann", "Lee", "Salem", "", "", item, "", "", matching.DefaultOptInValue, ""}
}

func TestHandleFormResponse_Submit(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.post(t, "/api/forms/Large%20DME%20Form/responses", "", FormResponseRequest{Values: offerValues("a@x.com", "Walker")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res listings.EventResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, listings.KindSubmission, res.Kind)
	assert.Equal(t, 1, res.Row)
	assert.NotEmpty(t, res.EventID)
	assert.Len(t, ts.ch.To("a@x.com"), 1)
}

func TestHandleFormResponse_AliasAndStoredRow(t *testing.T) {
	ts := newTestServer(t, "")
	ts.repo.Seed(testSheets.OptOut, []string{"Timestamp", "Email", "Name", "Item", "Successful?"},
		[]string{testNow.Format(time.RFC3339), "a@x.com", "A", "Walker", "No"})

	rec := ts.post(t, "/api/forms/opt-out/responses", "", FormResponseRequest{Row: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res listings.EventResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, listings.KindOptOut, res.Kind)
	assert.False(t, res.FoundOwn)
	require.Len(t, ts.ch.To("a@x.com"), 1)
	assert.Equal(t, "Action Required: Opt-Out Unsuccessful", ts.ch.To("a@x.com")[0].Subject)
}

func TestHandleFormResponse_Errors(t *testing.T) {
	ts := newTestServer(t, "")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown sheet", "/api/forms/Sheet1/responses", FormResponseRequest{Row: 1}, http.StatusNotFound, "unknown_sheet"},
		{"missing row", "/api/forms/main/responses", FormResponseRequest{Row: 9}, http.StatusNotFound, "row_not_found"},
		{"empty body", "/api/forms/main/responses", FormResponseRequest{}, http.StatusBadRequest, "bad_request"},
		{"blank values", "/api/forms/main/responses", FormResponseRequest{Values: []string{"", " "}}, http.StatusBadRequest, "bad_request"},
		{"unknown field", "/api/forms/main/responses", map[string]any{"rows": 1}, http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.post(t, tt.path, "", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var e httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestHandleFormResponse_OptInMissing(t *testing.T) {
	ts := newTestServer(t, "")
	header := mainHeader()
	header[11] = "Anything else?"
	ts.repo.Seed(testSheets.Main, header)

	rec := ts.post(t, "/api/forms/main/responses", "", FormResponseRequest{Values: offerValues("a@x.com", "Walker")})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var e struct {
		Code    string               `json:"code"`
		Details listings.EventResult `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "opt_in_missing", e.Code)
	assert.Equal(t, 1, e.Details.Row)
}

func TestSweepAndResyncEndpoints(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.post(t, "/api/sweeps/expiration", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sweep listings.SweepResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sweep))
	assert.Equal(t, 0, sweep.Warned)

	rec = ts.post(t, "/api/sweeps/resync", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.post(t, "/api/schema", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var h matching.FieldHandles
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, 13, h.OptOut)
	assert.Equal(t, 11, h.OptIn)
}

func TestIntakeToken(t *testing.T) {
	ts := newTestServer(t, "s3cret")

	rec := ts.post(t, "/api/sweeps/resync", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.post(t, "/api/sweeps/resync", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.post(t, "/api/sweeps/resync", "s3cret", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays open
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	hrec := httptest.NewRecorder()
	ts.router.ServeHTTP(hrec, req)
	assert.Equal(t, http.StatusOK, hrec.Code)
}

func TestHealth(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hc := NewHealthChecker(nil, client)

	rec := httptest.NewRecorder()
	hc.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "up", status.Checks["redis"].Status)
	assert.Equal(t, "not_configured", status.Checks["database"].Status)

	mr.Close()
	rec = httptest.NewRecorder()
	hc.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWriteServiceError_Busy(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, context.DeadlineExceeded, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	writeServiceError(rec, distlock.ErrNotAcquired, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

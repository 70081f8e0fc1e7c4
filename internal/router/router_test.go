package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/seat-hold-coordinator/internal/handler"
	"github.com/iliyamo/seat-hold-coordinator/internal/model"
	"github.com/iliyamo/seat-hold-coordinator/internal/service"
	"github.com/iliyamo/seat-hold-coordinator/internal/utils"
)

const secret = "router-test-secret"

type testServer struct {
	e      *echo.Echo
	charts *service.Charts
}

// fixedCatalog serves one chart with a hand-written seat list.
type fixedCatalog struct {
	key   string
	seats []model.Seat
}

func (f fixedCatalog) ChartKeys(context.Context) ([]string, error) { return []string{f.key}, nil }

func (f fixedCatalog) Seats(context.Context, string) ([]model.Seat, error) { return f.seats, nil }

func newTestServer(t *testing.T, hold time.Duration) testServer {
	t.Helper()
	return newTestServerWith(t, service.GridCatalog{Keys: []string{"gala"}, Rows: 2, Cols: 3}, hold)
}

func newTestServerWith(t *testing.T, catalog service.CatalogSource, hold time.Duration) testServer {
	t.Helper()
	charts, err := service.LoadCharts(context.Background(), catalog, nil, service.Options{HoldDuration: hold})
	require.NoError(t, err)
	sweeper, err := service.NewSweeper(charts, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sweeper.Shutdown() })

	keyHash, err := utils.HashAdminKey("correct-horse", bcrypt.MinCost)
	require.NoError(t, err)

	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	Register(e, Deps{
		JWTSecret: secret,
		Sessions:  handler.NewSessionHandler(secret, time.Hour),
		Charts:    handler.NewChartHandler(charts),
		Admin:     handler.NewAdminHandler(secret, keyHash, charts, sweeper),
	})
	return testServer{e: e, charts: charts}
}

func (s testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s testServer) session(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/sessions", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, time.Minute)
	rec := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSelectBookFlow(t *testing.T) {
	s := newTestServer(t, time.Minute)
	alice := s.session(t)
	bob := s.session(t)

	rec := s.do(t, http.MethodPost, "/v1/charts/gala/seats/a1/select", alice, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []any{"A1"}, decode(t, rec)["seat_ids"])
	assert.InDelta(t, 60, decode(t, rec)["remaining_seconds"], 1)

	rec = s.do(t, http.MethodPost, "/v1/charts/gala/seats/A1/select", bob, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "A1", decode(t, rec)["seat_id"])

	rec = s.do(t, http.MethodPost, "/v1/charts/gala/seats/A2/select", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/charts/gala/seats", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	seats := decode(t, rec)["seats"].([]any)
	require.Len(t, seats, 6)
	first := seats[0].(map[string]any)
	assert.Equal(t, "HELD", first["status"])
	assert.Equal(t, true, first["mine"])
	assert.NotContains(t, rec.Body.String(), "hold_token")

	rec = s.do(t, http.MethodPost, "/v1/charts/gala/book", alice, `{"seat_ids":["A1","a2"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode(t, rec)
	assert.Equal(t, []any{"A1", "A2"}, booking["seat_ids"])
	id := booking["id"].(string)

	rec = s.do(t, http.MethodGet, "/v1/charts/gala/bookings/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode(t, rec)["id"])

	rec = s.do(t, http.MethodGet, "/v1/charts/gala/hold", alice, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/charts/gala/book", alice, `{"seat_ids":["A1"]}`)
	assert.Equal(t, http.StatusGone, rec.Code, "a consumed hold reads as expired")
}

func TestDeselectAndRelease(t *testing.T) {
	s := newTestServer(t, time.Minute)
	tok := s.session(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/charts/gala/seats/B1/select", tok, "").Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/charts/gala/seats/B2/select", tok, "").Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/v1/charts/gala/seats/B1/select", tok, "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodDelete, "/v1/charts/gala/seats/B1/select", tok, "").Code)

	rec := s.do(t, http.MethodDelete, "/v1/charts/gala/hold", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"B2"}, decode(t, rec)["released"])
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/v1/charts/gala/hold", tok, "").Code)
}

func TestSeatRoutesRequireSession(t *testing.T) {
	s := newTestServer(t, time.Minute)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/v1/charts/gala/seats/A1/select", "", "").Code)

	admin, err := utils.NewAdminToken(secret, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/v1/charts/gala/seats/A1/select", admin.Token, "").Code)
}

func TestUnknownChartAndSeat(t *testing.T) {
	s := newTestServer(t, time.Minute)
	tok := s.session(t)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/charts/nope/seats", "", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/v1/charts/gala/seats/Z9/select", tok, "").Code)
}

func TestBookValidation(t *testing.T) {
	s := newTestServer(t, time.Minute)
	tok := s.session(t)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/v1/charts/gala/book", tok, `{"seat_ids":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/v1/charts/gala/book", tok, `{"seat_ids":["A1; DROP"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/v1/charts/gala/book", tok, `{`).Code)
	assert.Equal(t, http.StatusGone, s.do(t, http.MethodPost, "/v1/charts/gala/book", tok, `{"seat_ids":["A1"]}`).Code)
}

func TestHoldExpiresOverHTTP(t *testing.T) {
	s := newTestServer(t, 50*time.Millisecond)
	tok := s.session(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/charts/gala/seats/A3/select", tok, "").Code)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, http.StatusGone, s.do(t, http.MethodGet, "/v1/charts/gala/hold", tok, "").Code)
	assert.Equal(t, http.StatusGone, s.do(t, http.MethodPost, "/v1/charts/gala/book", tok, `{"seat_ids":["A3"]}`).Code)
}

func TestAdminLoginAndSweep(t *testing.T) {
	s := newTestServer(t, 20*time.Millisecond)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/v1/auth/admin", "", `{"key":"wrong-horse"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/v1/auth/admin", "", `{}`).Code)

	rec := s.do(t, http.MethodPost, "/v1/auth/admin", "", `{"key":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	admin := decode(t, rec)["token"].(string)

	tok := s.session(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/charts/gala/seats/A1/select", tok, "").Code)
	time.Sleep(40 * time.Millisecond)

	rec = s.do(t, http.MethodPost, "/v1/admin/charts/gala/sweep", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.EqualValues(t, 1, out["holds"])
	assert.EqualValues(t, 1, out["seats"])

	rec = s.do(t, http.MethodPost, "/v1/admin/sweep", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["seats"])

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/v1/admin/sweep", tok, "").Code)
}

func TestMixedCaseCatalogSeatsAreReachable(t *testing.T) {
	s := newTestServerWith(t, fixedCatalog{key: "gala", seats: []model.Seat{
		{ID: "balcony-12", Label: "Balcony 12"},
		{ID: "Box-3"},
	}}, time.Minute)
	tok := s.session(t)

	rec := s.do(t, http.MethodPost, "/v1/charts/gala/seats/balcony-12/select", tok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []any{"BALCONY-12"}, decode(t, rec)["seat_ids"])

	rec = s.do(t, http.MethodPost, "/v1/charts/gala/seats/box-3/select", tok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/charts/gala/book", tok, `{"seat_ids":["Balcony-12","BOX-3"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []any{"BALCONY-12", "BOX-3"}, decode(t, rec)["seat_ids"])

	rec = s.do(t, http.MethodGet, "/v1/charts/gala/seats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode(t, rec)["seats"].([]any)[0].(map[string]any)
	assert.Equal(t, "Balcony 12", first["label"])
	assert.Equal(t, "BOOKED", first["status"])
}

func TestBookUnknownSeatIsNotFound(t *testing.T) {
	s := newTestServer(t, time.Minute)
	tok := s.session(t)
	rec := s.do(t, http.MethodPost, "/v1/charts/gala/seats/A1/select", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/charts/gala/book", tok, `{"seat_ids":["A1","Z9"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/charts/gala/hold", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"A1"}, decode(t, rec)["seat_ids"])
}

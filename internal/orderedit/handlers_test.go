package orderedit

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/session"
)

func newRouter(t *testing.T, up *fakeUpstream) (*chi.Mux, *Service) {
	t.Helper()
	svc, _ := newService(t, up)
	h := &Handler{Svc: svc, Validate: validator.New()}
	r := chi.NewRouter()
	h.Routes(r)
	return r, svc
}

func TestStartEndpoint(t *testing.T) {
	r, _ := newRouter(t, &fakeUpstream{order: seededOrder()})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/edit-sessions", strings.NewReader(`{"order_id":41}`)))
	require.Equal(t, 201, rec.Code)

	var body struct {
		Data session.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.ID)
	require.Len(t, body.Data.Items, 1)
}

func TestStartEndpointValidatesOrderID(t *testing.T) {
	r, _ := newRouter(t, &fakeUpstream{order: seededOrder()})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/edit-sessions", strings.NewReader(`{}`)))
	require.Equal(t, 400, rec.Code)
}

func TestItemFlowOverHTTP(t *testing.T) {
	r, svc := newRouter(t, &fakeUpstream{order: seededOrder()})
	sess, err := svc.Start(context.Background(), 41, "staff-1")
	require.NoError(t, err)
	base := "/edit-sessions/" + sess.ID

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", base+"/items",
		strings.NewReader(`{"product_id":5,"name":"New","quantity":2,"retail_rate":10}`)))
	require.Equal(t, 200, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", base+"/totals", nil))
	require.Equal(t, 200, rec.Code)
	var totals struct {
		Data struct {
			Subtotal float64 `json:"subtotal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &totals))
	require.InDelta(t, 120, totals.Data.Subtotal, 1e-9)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("PATCH", base+"/items/missing", strings.NewReader(`{"quantity":1}`)))
	require.Equal(t, 404, rec.Code)
}

func TestUnknownSessionIs404(t *testing.T) {
	r, _ := newRouter(t, &fakeUpstream{order: seededOrder()})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/edit-sessions/nope", nil))
	require.Equal(t, 404, rec.Code)
}

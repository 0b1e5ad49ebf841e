package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	items []Submission
	total int
	err   error

	gotLimit  int
	gotOffset int
}

func (f *fakeLister) ListSubmissions(_ context.Context, limit, offset int) ([]Submission, int, error) {
	f.gotLimit, f.gotOffset = limit, offset
	return f.items, f.total, f.err
}

func TestListSubmissions(t *testing.T) {
	store := &fakeLister{
		items: []Submission{{
			ID: 1, SessionID: "s1", OrderID: 41, StaffID: "u7",
			Adds: 1, Updates: 2, Outcome: OutcomeAccepted,
			CreatedAt: time.Now(),
		}},
		total: 1,
	}
	h := &Handler{Store: store}

	rec := httptest.NewRecorder()
	h.ListSubmissions(rec, httptest.NewRequest("GET", "/admin/submissions?page=2&limit=10", nil))

	require.Equal(t, 200, rec.Code)
	require.Equal(t, 10, store.gotLimit)
	require.Equal(t, 10, store.gotOffset)

	var body struct {
		Data       []Submission `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, OutcomeAccepted, body.Data[0].Outcome)
	require.Equal(t, 2, body.Pagination.Page)
	require.Equal(t, 1, body.Pagination.TotalItems)
}

func TestListSubmissionsStoreError(t *testing.T) {
	h := &Handler{Store: &fakeLister{err: errors.New("db down")}}
	rec := httptest.NewRecorder()
	h.ListSubmissions(rec, httptest.NewRequest("GET", "/admin/submissions", nil))
	require.Equal(t, 500, rec.Code)
}

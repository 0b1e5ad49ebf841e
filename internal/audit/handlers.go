package audit

import (
	"context"
	"net/http"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Lister is the query surface the admin handler needs.
type Lister interface {
	ListSubmissions(ctx context.Context, limit, offset int) ([]Submission, int, error)
}

// Handler exposes the audit trail to back-office admins.
type Handler struct {
	Store Lister
}

// ListSubmissions handles GET /admin/submissions.
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "audit store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	items, total, err := h.Store.ListSubmissions(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list submissions", nil)
		return
	}
	if items == nil {
		items = []Submission{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

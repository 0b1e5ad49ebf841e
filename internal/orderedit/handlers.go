package orderedit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/session"
)

// Handler exposes the editing session flow over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate

	// Cache, when set, holds customer search results for CacheTTL.
	Cache    *redis.Client
	CacheTTL time.Duration

	// Idem, when set, guards the submit route against duplicate requests
	// carrying the same Idempotency-Key.
	Idem func(http.Handler) http.Handler

	// SearchLimit, when set, rate limits customer search per staff member.
	SearchLimit func(http.Handler) http.Handler
}

type startRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

type addItemRequest struct {
	ProductID     int64   `json:"product_id" validate:"required,gt=0"`
	StockID       *int64  `json:"product_stock_id"`
	Name          string  `json:"name"`
	Unit          string  `json:"unit"`
	Quantity      int     `json:"quantity"`
	RetailRate    float64 `json:"retail_rate"`
	WholesaleRate float64 `json:"wholesale_rate"`
	TaxRate       float64 `json:"tax_rate"`
	TaxIncluded   bool    `json:"tax_included"`
	Wholesale     bool    `json:"wholesale"`
	Discount      float64 `json:"discount"`
	SerialIDs     []int64 `json:"serial_ids"`
	WarrantyID    *int64  `json:"warranty_id"`
}

type patchItemRequest struct {
	Quantity  *int     `json:"quantity"`
	Rate      *float64 `json:"rate"`
	Wholesale *bool    `json:"wholesale"`
	Discount  *float64 `json:"discount"`
}

type patchSettingsRequest struct {
	DiscountPercent      *float64 `json:"discount_percent"`
	PaymentMethod        *string  `json:"payment_method"`
	PaymentStatus        *string  `json:"payment_status"`
	AmountPaid           *float64 `json:"amount_paid"`
	PartialPaymentAmount *float64 `json:"partial_payment_amount"`
	UsePoints            *bool    `json:"use_points"`
	PointsToUse          *float64 `json:"points_to_use"`
	UseBalance           *bool    `json:"use_balance"`
	BalanceToUse         *float64 `json:"balance_to_use"`
}

type setCustomerRequest struct {
	Customer *session.Customer `json:"customer"`
}

// Routes mounts every editing session endpoint on the router. The caller
// wraps the whole group with auth.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/edit-sessions", h.Start)
	r.Route("/edit-sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Cancel)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{itemID}", h.UpdateItem)
		r.Delete("/items/{itemID}", h.RemoveItem)
		r.Post("/items/{itemID}/normalize", h.NormalizeItem)
		r.Patch("/settings", h.UpdateSettings)
		r.Put("/customer", h.SetCustomer)
		r.Get("/totals", h.Totals)
		r.Get("/preview", h.Preview)
		if h.Idem != nil {
			r.With(h.Idem).Post("/submit", h.Submit)
		} else {
			r.Post("/submit", h.Submit)
		}
		r.Post("/confirm", h.Confirm)
	})
	if h.SearchLimit != nil {
		r.With(h.SearchLimit).Get("/customers", h.SearchCustomers)
	} else {
		r.Get("/customers", h.SearchCustomers)
	}
}

// Start handles POST /edit-sessions.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !h.decode(w, r, &req) {
		return
	}
	staffID, _ := common.StaffID(r.Context())
	sess, err := h.Svc.Start(r.Context(), req.OrderID, staffID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sess})
}

// Get handles GET /edit-sessions/{sessionID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.Sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// AddItem handles POST /edit-sessions/{sessionID}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.Svc.Sessions.AddItem(r.Context(), chi.URLParam(r, "sessionID"), session.AddItemInput{
		ProductID:     req.ProductID,
		StockID:       req.StockID,
		Name:          req.Name,
		Unit:          req.Unit,
		Quantity:      req.Quantity,
		RetailRate:    req.RetailRate,
		WholesaleRate: req.WholesaleRate,
		TaxRate:       req.TaxRate,
		TaxIncluded:   req.TaxIncluded,
		Wholesale:     req.Wholesale,
		Discount:      req.Discount,
		SerialIDs:     req.SerialIDs,
		WarrantyID:    req.WarrantyID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// UpdateItem handles PATCH /edit-sessions/{sessionID}/items/{itemID}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req patchItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.Svc.Sessions.UpdateItem(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"), session.ItemPatch{
		Quantity:  req.Quantity,
		Rate:      req.Rate,
		Wholesale: req.Wholesale,
		Discount:  req.Discount,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// NormalizeItem handles POST /edit-sessions/{sessionID}/items/{itemID}/normalize.
func (h *Handler) NormalizeItem(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.Sessions.NormalizeItem(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// RemoveItem handles DELETE /edit-sessions/{sessionID}/items/{itemID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.Sessions.RemoveItem(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// UpdateSettings handles PATCH /edit-sessions/{sessionID}/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req patchSettingsRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.Svc.Sessions.UpdateSettings(r.Context(), chi.URLParam(r, "sessionID"), session.SettingsPatch{
		DiscountPercent:      req.DiscountPercent,
		PaymentMethod:        req.PaymentMethod,
		PaymentStatus:        req.PaymentStatus,
		AmountPaid:           req.AmountPaid,
		PartialPaymentAmount: req.PartialPaymentAmount,
		UsePoints:            req.UsePoints,
		PointsToUse:          req.PointsToUse,
		UseBalance:           req.UseBalance,
		BalanceToUse:         req.BalanceToUse,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// SetCustomer handles PUT /edit-sessions/{sessionID}/customer. A null
// customer detaches the current one.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var req setCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.Svc.Sessions.SetCustomer(r.Context(), chi.URLParam(r, "sessionID"), req.Customer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// Totals handles GET /edit-sessions/{sessionID}/totals.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Svc.Totals(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

// Preview handles GET /edit-sessions/{sessionID}/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.Svc.PreviewSubmission(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": preview})
}

// Submit handles POST /edit-sessions/{sessionID}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.Svc.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Confirm handles POST /edit-sessions/{sessionID}/confirm, the explicit
// dismissal of the confirmation view.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Dismiss(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"dismissed": true}})
}

// Cancel handles DELETE /edit-sessions/{sessionID}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Cancel(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchCustomers handles GET /customers?query=.
func (h *Handler) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	page, perPage := common.ParsePagination(r, 20, 50)

	cacheKey := customerCacheKey(query, page, perPage)
	if h.Cache != nil {
		if cached, err := h.Cache.Get(r.Context(), cacheKey).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
	}

	out, err := h.Svc.SearchCustomers(r.Context(), query, page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	body, _ := json.Marshal(map[string]any{"data": out})
	if h.Cache != nil {
		ttl := h.CacheTTL
		if ttl <= 0 {
			ttl = 30 * time.Second
		}
		_ = h.Cache.Set(r.Context(), cacheKey, body, ttl).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func customerCacheKey(query string, page, perPage int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d", query, page, perPage))
	return "custsearch:" + hex.EncodeToString(sum[:8])
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
	case errors.Is(err, session.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "editing session not found", nil)
	case errors.Is(err, session.ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "line item not found", nil)
	default:
		if appErr, ok := common.AsAppError(err); ok {
			status := appErr.HTTPStatus
			if status == 0 {
				status = http.StatusBadRequest
			}
			code := appErr.Code
			if code == "" {
				code = "BAD_REQUEST"
			}
			common.JSONError(w, status, code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}

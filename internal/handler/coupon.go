package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banglamart/ordercore/internal/domain/coupon"
)

type validateCouponRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ValidateCoupon handles POST /api/coupons/validate. Read-only: repeated
// calls never consume coupon uses.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.Subtotal.IsNegative() {
		writeError(w, http.StatusBadRequest, "subtotal must not be negative")
		return
	}

	result, err := h.validator.Validate(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("couponId")
		e.Str(result.CouponID)
		e.FieldStart("code")
		e.Str(result.Code)
		e.FieldStart("discountType")
		e.Str(string(result.DiscountType))
		e.FieldStart("discount")
		encDecimal(e, result.Discount)
		e.ObjEnd()
	})
}

type createCouponRequest struct {
	Code         string          `json:"code"`
	DiscountType string          `json:"discountType"`
	Amount       decimal.Decimal `json:"amount"`
	UsageLimit   *int            `json:"usageLimit"`
	ExpiresAt    *time.Time      `json:"expiresAt"`
}

// CreateCoupon handles POST /admin/coupons. New coupons start active.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	code := coupon.NormalizeCode(req.Code)
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	t := coupon.DiscountType(req.DiscountType)
	if t != coupon.DiscountPercentage && t != coupon.DiscountFixed {
		writeError(w, http.StatusUnprocessableEntity, "unknown discount type "+req.DiscountType)
		return
	}
	if req.Amount.IsNegative() {
		writeError(w, http.StatusUnprocessableEntity, "amount must not be negative")
		return
	}
	if req.UsageLimit != nil && *req.UsageLimit <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "usage limit must be positive")
		return
	}

	c := &coupon.Coupon{
		ID:           uuid.New().String(),
		Code:         code,
		DiscountType: t,
		Amount:       req.Amount,
		IsActive:     true,
		UsageLimit:   req.UsageLimit,
		ExpiresAt:    req.ExpiresAt,
		CreatedAt:    time.Now(),
	}
	if err := h.coupons.Create(r.Context(), c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if h.codeFilter != nil {
		h.codeFilter.Add(code)
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("couponId")
		e.Str(c.ID)
		e.FieldStart("code")
		e.Str(c.Code)
		e.ObjEnd()
	})
}

type setCouponActiveRequest struct {
	Active bool `json:"active"`
}

// SetCouponActive handles PATCH /admin/coupons/{code}/active.
func (h *Handler) SetCouponActive(w http.ResponseWriter, r *http.Request) {
	code := coupon.NormalizeCode(chi.URLParam(r, "code"))

	var req setCouponActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.coupons.SetActive(r.Context(), code, req.Active); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(code)
		e.FieldStart("active")
		e.Bool(req.Active)
		e.ObjEnd()
	})
}

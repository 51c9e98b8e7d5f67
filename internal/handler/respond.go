package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/banglamart/ordercore/internal/domain/coupon"
	"github.com/banglamart/ordercore/internal/domain/order"
	"github.com/banglamart/ordercore/internal/repository"
)

// writeJSON encodes a response body with jx and writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the standard {code, message} error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// writeDomainError maps a domain error to its HTTP response. Validation
// failures carry their reason verbatim; persistence failures are logged and
// surfaced as an opaque retriable 503.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrExhausted):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, order.ErrTotalMismatch):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, repository.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, repository.ErrStatusConflict):
		writeError(w, http.StatusConflict, "order changed, please refresh and try again")

	case errors.Is(err, repository.ErrCouponCodeTaken):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, order.ErrPersistenceFailed):
		zctx.From(r.Context()).Error("order persistence failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "failed to place order, please try again")

	default:
		var (
			iqErr  *order.InvalidQuantityError
			mfErr  *order.MissingFieldError
			pmErr  *order.PriceMismatchError
			rnfErr *order.ReferenceNotFoundError
			trErr  *order.TransitionError
		)
		switch {
		case errors.As(err, &iqErr), errors.As(err, &mfErr):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &pmErr):
			writeError(w, http.StatusConflict, "pricing changed, please refresh and try again")
		case errors.As(err, &rnfErr):
			writeError(w, http.StatusUnprocessableEntity, "please refresh and try again: "+err.Error())
		case errors.As(err, &trErr):
			writeError(w, http.StatusConflict, err.Error())
		default:
			zctx.From(r.Context()).Error("request failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

// encDecimal writes a decimal as a JSON number.
func encDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

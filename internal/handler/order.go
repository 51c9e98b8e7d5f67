package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/banglamart/ordercore/internal/cache"
	"github.com/banglamart/ordercore/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
}

type createOrderRequest struct {
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	CustomerPhone   string             `json:"customerPhone"`
	ShippingAddress string             `json:"shippingAddress"`
	City            string             `json:"city"`
	PostalCode      string             `json:"postalCode"`
	DeliveryZone    string             `json:"deliveryZone"`
	DeliveryCharge  decimal.Decimal    `json:"deliveryCharge"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Discount        decimal.Decimal    `json:"discount"`
	Total           decimal.Decimal    `json:"total"`
	PaymentMethod   string             `json:"paymentMethod"`
	Notes           string             `json:"notes"`
	CouponID        *string            `json:"couponId"`
	Items           []orderItemRequest `json:"items"`
}

// CreateOrder handles POST /api/orders: the checkout submission endpoint.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	items := make([]order.ItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Size:      item.Size,
			Color:     item.Color,
		}
	}

	result, err := h.orders.Create(r.Context(), order.CreateRequest{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		City:            req.City,
		PostalCode:      req.PostalCode,
		DeliveryZone:    order.DeliveryZone(req.DeliveryZone),
		DeliveryCharge:  req.DeliveryCharge,
		Subtotal:        req.Subtotal,
		Discount:        req.Discount,
		Total:           req.Total,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		CouponID:        req.CouponID,
		Items:           items,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("orderId")
		e.Str(result.OrderID)
		e.FieldStart("orderNumber")
		e.Str(result.Number)
		e.FieldStart("status")
		e.Str(string(result.Status))
		e.FieldStart("total")
		encDecimal(e, result.Total)
		e.ObjEnd()
	})
}

// ListRecentOrders handles GET /admin/orders, serving from the view cache
// when a live entry exists.
func (h *Handler) ListRecentOrders(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.views.Get(cache.KeyRecentOrders); ok {
		if orders, ok := cached.([]order.Order); ok {
			writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
			return
		}
	}

	orders, err := h.orderStore.ListRecent(r.Context(), h.cfg.RecentOrdersLimit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.views.Set(cache.KeyRecentOrders, orders, h.cfg.RecentOrdersTTL)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus handles PATCH /admin/orders/{id}/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	to := order.Status(req.Status)
	if !to.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "unknown status "+req.Status)
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, to); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("orderId")
		e.Str(id)
		e.FieldStart("status")
		e.Str(string(to))
		e.ObjEnd()
	})
}

// DashboardStats handles GET /admin/stats, serving cached aggregates.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.views.Get(cache.KeyDashboardStats); ok {
		if stats, ok := cached.(order.Stats); ok {
			writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStats(e, stats) })
			return
		}
	}

	stats, err := h.orderStore.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.views.Set(cache.KeyDashboardStats, stats, h.cfg.StatsTTL)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStats(e, stats) })
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for i := range orders {
		encodeOrder(e, &orders[i])
	}
	e.ArrEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(o.ID)
	e.FieldStart("orderNumber")
	e.Str(o.Number)
	e.FieldStart("customerName")
	e.Str(o.CustomerName)
	e.FieldStart("customerEmail")
	e.Str(o.CustomerEmail)
	e.FieldStart("customerPhone")
	e.Str(o.CustomerPhone)
	e.FieldStart("shippingAddress")
	e.Str(o.ShippingAddress)
	e.FieldStart("city")
	e.Str(o.City)
	e.FieldStart("postalCode")
	e.Str(o.PostalCode)
	e.FieldStart("deliveryZone")
	e.Str(string(o.DeliveryZone))
	e.FieldStart("deliveryCharge")
	encDecimal(e, o.DeliveryCharge)
	e.FieldStart("subtotal")
	encDecimal(e, o.Subtotal)
	e.FieldStart("discount")
	encDecimal(e, o.Discount)
	e.FieldStart("total")
	encDecimal(e, o.Total)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("paymentMethod")
	e.Str(o.PaymentMethod)
	if o.Notes != "" {
		e.FieldStart("notes")
		e.Str(o.Notes)
	}
	if o.CouponID != nil {
		e.FieldStart("couponId")
		e.Str(*o.CouponID)
	}
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("price")
		encDecimal(e, item.Price)
		if item.Size != "" {
			e.FieldStart("size")
			e.Str(item.Size)
		}
		if item.Color != "" {
			e.FieldStart("color")
			e.Str(item.Color)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
	e.ObjEnd()
}

func encodeStats(e *jx.Encoder, s order.Stats) {
	e.ObjStart()
	e.FieldStart("totalOrders")
	e.Int64(s.TotalOrders)
	e.FieldStart("pendingOrders")
	e.Int64(s.PendingOrders)
	e.FieldStart("revenue")
	encDecimal(e, s.Revenue)
	e.ObjEnd()
}

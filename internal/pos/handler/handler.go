package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	billingdb "mesa/internal/billing/db"
	billingservice "mesa/internal/billing/service"
	kitchendb "mesa/internal/kitchen/db"
	menuservice "mesa/internal/menu/service"
	"mesa/internal/pos/cart"
	posdb "mesa/internal/pos/db"
	"mesa/internal/pos/service"
	stockservice "mesa/internal/stock/service"
	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/validation"

	"github.com/gorilla/mux"
)

type POSHandler struct {
	orders    *service.OrderService
	catalog   *menuservice.CatalogService
	finalizer *billingservice.Finalizer
	stock     *stockservice.Updater
	validator *validation.RequestValidator
	logger    *logger.Logger
}

func NewPOSHandler(orders *service.OrderService, catalog *menuservice.CatalogService,
	finalizer *billingservice.Finalizer, stock *stockservice.Updater, logger *logger.Logger) *POSHandler {
	return &POSHandler{
		orders:    orders,
		catalog:   catalog,
		finalizer: finalizer,
		stock:     stock,
		validator: validation.NewRequestValidator(),
		logger:    logger,
	}
}

func (h *POSHandler) Register(router *mux.Router) {
	router.HandleFunc("/menu", h.GetMenu).Methods(http.MethodGet)
	router.HandleFunc("/menu/low-stock", h.GetLowStock).Methods(http.MethodGet)
	router.HandleFunc("/menu/out-of-stock", h.GetOutOfStock).Methods(http.MethodGet)

	router.HandleFunc("/tables/{tableID}/session", h.OpenSession).Methods(http.MethodPost)

	router.HandleFunc("/carts/{cartID}", h.GetCart).Methods(http.MethodGet)
	router.HandleFunc("/carts/{cartID}", h.ClearCart).Methods(http.MethodDelete)
	router.HandleFunc("/carts/{cartID}/items", h.AddCartItem).Methods(http.MethodPost)
	router.HandleFunc("/carts/{cartID}/items/{itemID}/increase", h.IncreaseCartItem).Methods(http.MethodPost)
	router.HandleFunc("/carts/{cartID}/items/{itemID}/decrease", h.DecreaseCartItem).Methods(http.MethodPost)

	router.HandleFunc("/orders", h.SubmitOrder).Methods(http.MethodPost)
	router.HandleFunc("/orders/{number}/billing", h.BillOrder).Methods(http.MethodPost)

	router.HandleFunc("/stock/adjustments", h.AdjustStock).Methods(http.MethodPost)
}

func (h *POSHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	h.writeItems(w, r, h.catalog.AvailableItems)
}

func (h *POSHandler) GetLowStock(w http.ResponseWriter, r *http.Request) {
	h.writeItems(w, r, h.catalog.LowStockItems)
}

func (h *POSHandler) GetOutOfStock(w http.ResponseWriter, r *http.Request) {
	h.writeItems(w, r, h.catalog.OutOfStockItems)
}

func (h *POSHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)
	tableID := mux.Vars(r)["tableID"]

	var req models.OpenSessionRequest
	if !h.decode(w, r, requestID, &req) {
		return
	}

	session, err := h.orders.OpenTableSession(r.Context(), tableID, &req)
	if errors.Is(err, posdb.ErrTableOccupied) {
		http.Error(w, "Table already has an active session", http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error(requestID, "session_open_failed", "Failed to open table session", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *POSHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c := h.orders.Cart(mux.Vars(r)["cartID"])
	writeJSON(w, http.StatusOK, cartView(c))
}

func (h *POSHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.orders.NewOrder(mux.Vars(r)["cartID"])
	w.WriteHeader(http.StatusNoContent)
}

func (h *POSHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)
	cartID := mux.Vars(r)["cartID"]

	var req models.AddCartItemRequest
	if !h.decode(w, r, requestID, &req) {
		return
	}

	c, err := h.orders.AddToCart(r.Context(), cartID, req.MenuItemID)
	switch {
	case errors.Is(err, posdb.ErrMenuItemNotFound):
		http.Error(w, "Menu item not found", http.StatusNotFound)
		return
	case errors.Is(err, cart.ErrNotPurchasable), errors.Is(err, cart.ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.logger.Error(requestID, "cart_add_failed", "Failed to add item to cart", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cartView(c))
}

func (h *POSHandler) IncreaseCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCartLine(w, r, (*cart.Cart).Increase)
}

func (h *POSHandler) DecreaseCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCartLine(w, r, (*cart.Cart).Decrease)
}

func (h *POSHandler) mutateCartLine(w http.ResponseWriter, r *http.Request, op func(*cart.Cart, int64) error) {
	vars := mux.Vars(r)
	itemID, err := strconv.ParseInt(vars["itemID"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid menu item id", http.StatusBadRequest)
		return
	}

	c := h.orders.Cart(vars["cartID"])
	if err := op(c, itemID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, cartView(c))
}

func (h *POSHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)

	var req models.SubmitOrderRequest
	if !h.decode(w, r, requestID, &req) {
		return
	}

	h.logger.Debug(requestID, "order_received", "New order submission received")

	resp, err := h.orders.SubmitOrder(r.Context(), &req, requestID)
	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrMissingStaff),
		errors.Is(err, service.ErrUnknownSession):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrInactiveTable):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.logger.Error(requestID, "order_processing_failed", "Failed to create order", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *POSHandler) BillOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)
	orderNumber := mux.Vars(r)["number"]

	var req models.BillOrderRequest
	if !h.decode(w, r, requestID, &req) {
		return
	}

	rec, err := h.finalizer.Finalize(r.Context(), orderNumber, &req, requestID)
	switch {
	case errors.Is(err, kitchendb.ErrKitchenOrderNotFound),
		errors.Is(err, billingdb.ErrOrderNotFound):
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	case errors.Is(err, billingservice.ErrNotReady):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.logger.Error(requestID, "billing_failed", "Failed to finalize order", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order_number": orderNumber,
		"receipt":      rec.Text,
	})
}

func (h *POSHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)

	var req models.AdjustStockRequest
	if !h.decode(w, r, requestID, &req) {
		return
	}

	item, err := h.stock.Adjust(r.Context(), &req, requestID)
	if err != nil {
		h.logger.Error(requestID, "stock_adjustment_failed", "Failed to adjust stock", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *POSHandler) writeItems(w http.ResponseWriter, r *http.Request,
	fetch func(ctx context.Context) ([]models.MenuItem, error)) {
	requestID := requestID(r)

	items, err := fetch(r.Context())
	if err != nil {
		h.logger.Error(requestID, "db_query_failed", "Failed to load menu items", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *POSHandler) decode(w http.ResponseWriter, r *http.Request, requestID string, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.logger.Error(requestID, "validation_failed", "Invalid JSON payload", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return false
	}
	if err := h.validator.Validate(req); err != nil {
		h.logger.Error(requestID, "validation_failed", "Validation failed", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func cartView(c *cart.Cart) map[string]any {
	return map[string]any{
		"lines":        c.Lines(),
		"total_amount": c.TotalAmount(),
		"total_items":  c.TotalItems(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func requestID(r *http.Request) string {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = "req-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return requestID
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"mesa/internal/kitchen/db"
	"mesa/internal/kitchen/service"
	"mesa/internal/kitchen/status"
	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/validation"

	"github.com/gorilla/mux"
)

type KitchenHandler struct {
	service   *service.KitchenService
	validator *validation.RequestValidator
	logger    *logger.Logger
}

func NewKitchenHandler(svc *service.KitchenService, logger *logger.Logger) *KitchenHandler {
	return &KitchenHandler{
		service:   svc,
		validator: validation.NewRequestValidator(),
		logger:    logger,
	}
}

func (h *KitchenHandler) Register(router *mux.Router) {
	router.HandleFunc("/kitchen/orders", h.GetBoard).Methods(http.MethodGet)
	router.HandleFunc("/kitchen/orders/{id}/status", h.UpdateStatus).Methods(http.MethodPost)
}

func (h *KitchenHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)

	board, err := h.service.Board(r.Context())
	if err != nil {
		h.logger.Error(requestID, "db_query_failed", "Failed to load kitchen board", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(board)
}

func (h *KitchenHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid kitchen order id", http.StatusBadRequest)
		return
	}

	var req models.UpdateKitchenStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error(requestID, "validation_failed", "Invalid JSON payload", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.logger.Error(requestID, "validation_failed", "Validation failed", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ko, err := h.service.AdvanceStatus(r.Context(), id, req.NewStatus, req.ChangedBy, requestID)
	switch {
	case errors.Is(err, db.ErrKitchenOrderNotFound):
		http.Error(w, "Kitchen order not found", http.StatusNotFound)
		return
	case errors.Is(err, status.ErrNotForward),
		errors.Is(err, status.ErrTerminal),
		errors.Is(err, db.ErrStatusConflict):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, status.ErrUnknownStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error(requestID, "status_update_failed", "Failed to advance kitchen status", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ko)
}

func requestID(r *http.Request) string {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = "req-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return requestID
}

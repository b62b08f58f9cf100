package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"vznosBot/internal/fsm"
	"vznosBot/internal/models"
	"vznosBot/internal/services"
)

type BillingHandler struct {
	Service *services.BillingService
}

func (h *BillingHandler) SetupGroup(w http.ResponseWriter, r *http.Request) {
	var group models.Group
	if err := json.NewDecoder(r.Body).Decode(&group); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	created, err := h.Service.SetupGroup(r.Context(), group)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(created)
}

type ensureInvoiceRequest struct {
	GroupID  int64 `json:"group_id"`
	MemberID int64 `json:"member_id"`
}

type ensureInvoiceResponse struct {
	Invoice models.Invoice `json:"invoice"`
	DueAt   string         `json:"due_at"`
}

func (h *BillingHandler) EnsureInvoice(w http.ResponseWriter, r *http.Request) {
	var req ensureInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	invoice, dueAt, err := h.Service.EnsureInvoiceAndSchedule(r.Context(), req.GroupID, req.MemberID)
	if err != nil {
		if errors.Is(err, models.ErrGroupNotFound) || errors.Is(err, models.ErrMemberNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to ensure invoice", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(ensureInvoiceResponse{Invoice: invoice, DueAt: dueAt.Format("2006-01-02T15:04:05Z07:00")})
}

func (h *BillingHandler) InvoiceStatus(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid chat_id", http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user_id", http.StatusBadRequest)
		return
	}
	status, err := h.Service.GetInvoiceStatus(r.Context(), chatID, userID)
	if err != nil {
		if errors.Is(err, models.ErrGroupNotFound) || errors.Is(err, models.ErrMemberNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch status", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(status)
}

func (h *BillingHandler) ExcuseInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get(":id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid invoice id", http.StatusBadRequest)
		return
	}
	if err := h.Service.ExcuseInvoice(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, models.ErrInvoiceNotFound):
			http.Error(w, "Invoice not found", http.StatusNotFound)
		case errors.Is(err, fsm.ErrInvalidTransition):
			http.Error(w, "Invoice cannot be excused", http.StatusConflict)
		default:
			http.Error(w, "Failed to excuse", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

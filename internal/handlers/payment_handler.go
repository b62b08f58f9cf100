package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"vznosBot/internal/models"
	"vznosBot/internal/pay"
	"vznosBot/internal/services"
)

type PaymentHandler struct {
	Service       *services.PaymentService
	WebhookSecret string
}

type startPaymentRequest struct {
	InvoiceID int64 `json:"invoice_id"`
}

func (h *PaymentHandler) StartPayment(w http.ResponseWriter, r *http.Request) {
	var req startPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	payment, err := h.Service.StartPayment(r.Context(), req.InvoiceID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvoiceNotFound):
			http.Error(w, "Invoice not found", http.StatusNotFound)
		case errors.Is(err, services.ErrNotPayable):
			http.Error(w, "Invoice is not payable", http.StatusConflict)
		default:
			http.Error(w, "Failed to start payment", http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(payment)
}

type webhookPayload struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

// Webhook settles a payment reported by the provider. The body is verified
// against the shared secret before anything is parsed.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	if !pay.VerifyHMAC(body, r.Header.Get("X-Signature"), h.WebhookSecret) {
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.ExternalID == "" {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	if payload.Status != "" && payload.Status != models.PaymentSucceeded {
		w.WriteHeader(http.StatusOK)
		return
	}
	payment, err := h.Service.SettlePayment(r.Context(), payload.ExternalID)
	if err != nil {
		if errors.Is(err, models.ErrPaymentNotFound) {
			http.Error(w, "Payment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to settle payment", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(payment)
}

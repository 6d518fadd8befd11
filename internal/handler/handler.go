package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"bank-offers-api/internal/models"
	"bank-offers-api/internal/service"
	"bank-offers-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 10 << 20, // 10MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// CreateOffers handles POST /offer. The body is the raw checkout-page
// response; offers live under paymentOptions.items[type=OFFER_LIST].
func (h *Handler) CreateOffers(w http.ResponseWriter, r *http.Request) {
	// Limit request body size to prevent abuse
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.CreateOffersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	if req.FlipkartOfferAPIResponse == nil || req.FlipkartOfferAPIResponse.PaymentOptions == nil ||
		req.FlipkartOfferAPIResponse.PaymentOptions.Items == nil {
		h.respondError(w, http.StatusBadRequest, "missing or invalid 'paymentOptions.items'")
		return
	}

	var offerList []models.RawOffer
	found := false
	for _, item := range req.FlipkartOfferAPIResponse.PaymentOptions.Items {
		if item.Type == "OFFER_LIST" {
			offerList = item.Data.Offers.OfferList
			found = true
			break
		}
	}
	if !found {
		h.respondError(w, http.StatusBadRequest, "no item with type 'OFFER_LIST' found")
		return
	}
	if offerList == nil {
		h.respondError(w, http.StatusBadRequest, "invalid or missing 'offerList'")
		return
	}

	identified, created, err := h.service.IngestOffers(r.Context(), offerList)
	if err != nil {
		log.Printf("ingest offers: %v", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.respondJSON(w, http.StatusCreated, models.CreateOffersResponse{
		OffersIdentified: identified,
		NewOffersCreated: created,
	})
}

// GetHighestDiscount handles GET /highest-discount. Query parameters are
// converted and range-checked once here, before they reach the resolution
// engine.
func (h *Handler) GetHighestDiscount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := validation.ParseAmount(q.Get("amountToPay"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	bank, err := validation.ValidateBankName(q.Get("bankName"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	instrument, err := validation.NormalizeInstrument(q.Get("instrument"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, discount, err := h.service.ResolveHighestDiscount(r.Context(), amount, bank, instrument)
	if err != nil {
		if errors.Is(err, service.ErrNoOfferFound) {
			h.respondError(w, http.StatusNotFound, "no applicable offer found")
			return
		}
		log.Printf("resolve highest discount: %v", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.respondJSON(w, http.StatusOK, models.HighestDiscountResponse{
		HighestDiscountAmount: discount,
	})
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}

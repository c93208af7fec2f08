package adaptor

import (
	"net/http"

	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/usecase"
	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), tenant, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "success", booking)
}

// ListBookings handles GET /api/bookings?status=&page=&per_page=
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := &request.ListBookingsRequest{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 10),
		},
		Status: query.Get("status"),
	}

	bookings, err := h.service.ListBookings(r.Context(), tenant, req)
	if err != nil {
		handleServiceError(w, h.log, err, "list bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), tenant, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// AssignDriver handles POST /api/bookings/{id}/assign. The assignment stands
// even when the dispatch message fails; see side_effects in the response.
func (h *BookingHandler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req request.AssignDriverRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.AssignDriver(r.Context(), tenant, bookingID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "assign driver")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// TransitionStatus handles POST /api/bookings/{id}/status
func (h *BookingHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req request.TransitionStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.TransitionStatus(r.Context(), tenant, bookingID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "transition booking")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

package adaptor

import (
	"net/http"

	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/dto/response"
	"chauffeur-backoffice/internal/usecase"
	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

type InvoiceHandler struct {
	service usecase.InvoiceService
	log     *zap.Logger
}

func NewInvoiceHandler(service usecase.InvoiceService, log *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		service: service,
		log:     log.With(zap.String("handler", "invoice")),
	}
}

// CreateInvoice handles POST /api/invoices.
//
// 201 when every invoice was created, 207 when only some were and 502 when
// none were. The body always lists each attempt.
func (h *InvoiceHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	batch, err := h.service.CreateInvoiceFromBookings(r.Context(), tenant, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create invoice")
		return
	}

	switch {
	case batch.Success:
		utils.ResponseCreated(w, "success", batch)
	case anyCreated(batch):
		utils.ResponseJSON(w, http.StatusMultiStatus, false, "Some invoices could not be created", batch, nil)
	default:
		utils.ResponseJSON(w, http.StatusBadGateway, false, "No invoices could be created", batch, nil)
	}
}

func anyCreated(batch *response.InvoiceBatchResponse) bool {
	for _, res := range batch.Results {
		if res.Success {
			return true
		}
	}
	return false
}

// ListInvoices handles GET /api/invoices?page=&per_page=
func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	invoices, err := h.service.ListInvoices(r.Context(), tenant, req)
	if err != nil {
		handleServiceError(w, h.log, err, "list invoices")
		return
	}

	utils.ResponseSuccess(w, "success", invoices)
}

// GetInvoice handles GET /api/invoices/{id}
func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	invoice, err := h.service.GetInvoice(r.Context(), tenant, invoiceID)
	if err != nil {
		handleServiceError(w, h.log, err, "get invoice")
		return
	}

	utils.ResponseSuccess(w, "success", invoice)
}

// SyncInvoice handles POST /api/invoices/{id}/sync
func (h *InvoiceHandler) SyncInvoice(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	invoice, err := h.service.SyncInvoice(r.Context(), tenant, invoiceID)
	if err != nil {
		handleServiceError(w, h.log, err, "sync invoice")
		return
	}

	utils.ResponseSuccess(w, "success", invoice)
}

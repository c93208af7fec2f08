package adaptor

import (
	"net/http"

	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/usecase"
	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

type DriverHandler struct {
	service usecase.DriverService
	log     *zap.Logger
}

func NewDriverHandler(service usecase.DriverService, log *zap.Logger) *DriverHandler {
	return &DriverHandler{
		service: service,
		log:     log.With(zap.String("handler", "driver")),
	}
}

// CreateDriver handles POST /api/drivers
func (h *DriverHandler) CreateDriver(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateDriverRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	driver, err := h.service.CreateDriver(r.Context(), tenant, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create driver")
		return
	}

	utils.ResponseCreated(w, "success", driver)
}

// ListDrivers handles GET /api/drivers
func (h *DriverHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	drivers, err := h.service.ListDrivers(r.Context(), tenant)
	if err != nil {
		handleServiceError(w, h.log, err, "list drivers")
		return
	}

	utils.ResponseSuccess(w, "success", drivers)
}

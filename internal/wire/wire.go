package wire

import (
	"net/http"

	"chauffeur-backoffice/internal/adaptor"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/usecase"
	"chauffeur-backoffice/pkg/middleware"
	"chauffeur-backoffice/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the assembled HTTP surface
type App struct {
	Router *chi.Mux
}

// Wiring builds services and handlers and mounts every route
func Wiring(repo *repository.Repository, providers usecase.Providers, verifier adaptor.SubscriptionVerifier, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, providers, config, logger)
	handler := adaptor.NewHandler(service, verifier, config, logger)

	return &App{
		Router: setupRouter(handler, config, logger),
	}
}

func setupRouter(handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins...))

	// Provider callbacks authenticate by signature, not by token
	wireWebhooks(r, handler.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(config.JWT, logger))

		wireBooking(r, handler.Booking, handler.Message, handler.Payment)
		wireDriver(r, handler.Driver)
		wireInvoice(r, handler.Invoice)
		wirePayment(r, handler.Payment, logger)
		wireAccounting(r, handler.Accounting, logger)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

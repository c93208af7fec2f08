package wire

import (
	"chauffeur-backoffice/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	messageHandler *adaptor.MessageHandler,
	paymentHandler *adaptor.PaymentHandler,
) {
	r.Route("/api/bookings", func(r chi.Router) {
		r.Post("/", bookingHandler.CreateBooking)
		r.Get("/", bookingHandler.ListBookings)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", bookingHandler.GetBooking)
			r.Post("/assign", bookingHandler.AssignDriver)
			r.Post("/status", bookingHandler.TransitionStatus)

			// Messaging history and manual follow-ups for this booking
			r.Get("/messages", messageHandler.History)
			r.Post("/messages", messageHandler.SendManual)

			// Collecting payment for this booking
			r.Post("/checkout", paymentHandler.CreateCheckoutSession)
			r.Get("/payments", paymentHandler.ListPayments)
			r.Post("/payment-links", paymentHandler.CreatePaymentLink)
			r.Get("/payment-links", paymentHandler.ListPaymentLinks)
		})
	})

	r.Post("/api/messages/{id}/resend", messageHandler.Resend)
}

func wireDriver(r chi.Router, driverHandler *adaptor.DriverHandler) {
	r.Post("/api/drivers", driverHandler.CreateDriver)
	r.Get("/api/drivers", driverHandler.ListDrivers)
}

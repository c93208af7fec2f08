package response

import (
	"time"

	"chauffeur-backoffice/internal/data/entity"
)

type DriverResponse struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Phone          string              `json:"phone"`
	Email          *string             `json:"email,omitempty"`
	VehicleMake    string              `json:"vehicle_make,omitempty"`
	VehicleModel   string              `json:"vehicle_model,omitempty"`
	VehiclePlate   string              `json:"vehicle_plate,omitempty"`
	Status         entity.DriverStatus `json:"status"`
	Rating         float64             `json:"rating"`
	MessagingOptIn bool                `json:"messaging_opt_in"`
	PhoneVerified  bool                `json:"phone_verified"`
	CreatedAt      time.Time           `json:"created_at"`
}

func DriverToResponse(d *entity.Driver) DriverResponse {
	return DriverResponse{
		ID:             d.ID.String(),
		Name:           d.Name,
		Phone:          d.Phone,
		Email:          d.Email,
		VehicleMake:    d.VehicleMake,
		VehicleModel:   d.VehicleModel,
		VehiclePlate:   d.VehiclePlate,
		Status:         d.Status,
		Rating:         d.Rating,
		MessagingOptIn: d.MessagingOptIn,
		PhoneVerified:  d.PhoneVerified,
		CreatedAt:      d.CreatedAt,
	}
}

package request

type CreateDriverRequest struct {
	Name           string  `json:"name" validate:"required,min=2,max=120"`
	Phone          string  `json:"phone" validate:"required,e164"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	VehicleMake    string  `json:"vehicle_make" validate:"max=60"`
	VehicleModel   string  `json:"vehicle_model" validate:"max=60"`
	VehiclePlate   string  `json:"vehicle_plate" validate:"max=20"`
	MessagingOptIn bool    `json:"messaging_opt_in"`
}

package entity

type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
)

type Driver struct {
	TenantBase
	Name           string       `db:"name"`
	Phone          string       `db:"phone"`
	Email          *string      `db:"email"`
	VehicleMake    string       `db:"vehicle_make"`
	VehicleModel   string       `db:"vehicle_model"`
	VehiclePlate   string       `db:"vehicle_plate"`
	Status         DriverStatus `db:"status"`
	Rating         float64      `db:"rating"`
	MessagingOptIn bool         `db:"messaging_opt_in"`
	PhoneVerified  bool         `db:"phone_verified"`
}

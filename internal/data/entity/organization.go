package entity

import (
	"time"

	"github.com/google/uuid"
)

type Organization struct {
	ID                uuid.UUID `db:"id"`
	Name              string    `db:"name"`
	PaymentsOnboarded bool      `db:"payments_onboarded"`
	MessagingNumber   *string   `db:"messaging_number"` // digits-only business number, when the tenant has its own
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

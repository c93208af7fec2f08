package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// GenerateStateToken returns an unguessable single-use token for OAuth redirects.
func GenerateStateToken() string {
	return uuid.NewString() + uuid.NewString()[:8]
}

// GenerateBookingReference returns a human-facing reference.
// Format: BK-YYYYMMDD-HHMMSS-NNNN
func GenerateBookingReference(now time.Time) string {
	return fmt.Sprintf("BK-%s-%s-%04d", now.Format("20060102"), now.Format("150405"), rand.Intn(10000))
}

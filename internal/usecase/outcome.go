package usecase

import (
	"chauffeur-backoffice/internal/dto/response"

	"github.com/google/uuid"
)

type OutcomeStatus string

const (
	OutcomeProcessed OutcomeStatus = "processed"
	// OutcomeNoop means the event was already applied or would regress state.
	OutcomeNoop OutcomeStatus = "noop"
	// OutcomeNotFound is an expected race: the event references a record
	// this system does not (yet) hold.
	OutcomeNotFound OutcomeStatus = "not_found"
	OutcomeIgnored  OutcomeStatus = "ignored"
	// OutcomeRetry asks the provider to deliver the callback again later.
	OutcomeRetry OutcomeStatus = "retry"
)

// Outcome is the non-error result of handling a provider callback.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Detail string        `json:"detail,omitempty"`
}

func processed(detail string) Outcome { return Outcome{Status: OutcomeProcessed, Detail: detail} }
func noop(detail string) Outcome      { return Outcome{Status: OutcomeNoop, Detail: detail} }
func notFound(detail string) Outcome  { return Outcome{Status: OutcomeNotFound, Detail: detail} }

// SideEffect is one best-effort action chained after a primary mutation.
// Its failure never fails the primary action.
type SideEffect struct {
	Name      string
	Success   bool
	MessageID *uuid.UUID
	Error     string
}

func sideEffectsToResponse(effects []SideEffect) []response.SideEffectResponse {
	out := make([]response.SideEffectResponse, 0, len(effects))
	for _, e := range effects {
		item := response.SideEffectResponse{Name: e.Name, Success: e.Success, Error: e.Error}
		if e.MessageID != nil {
			id := e.MessageID.String()
			item.MessageID = &id
		}
		out = append(out, item)
	}
	return out
}

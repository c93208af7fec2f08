package request

type CreateCheckoutRequest struct {
	CustomerEmail *string `json:"customer_email,omitempty" validate:"omitempty,email"`
	Source        string  `json:"source" validate:"omitempty,oneof=widget link manual"`
}

type CreateOnboardingLinkRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

package request

type SendMessageRequest struct {
	Recipient string `json:"recipient" validate:"required,oneof=customer driver"`
	Body      string `json:"body" validate:"required,max=1024"`
}

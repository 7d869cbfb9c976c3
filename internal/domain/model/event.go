package model

// WebhookEvent is the closed set of provider notifications the engine acts on.
// Implementations live in this package only.
type WebhookEvent interface {
	EventName() string
	isWebhookEvent()
}

type PaymentCaptured struct {
	PaymentID string
	OrderID   string
}

type PaymentFailed struct {
	PaymentID string
	OrderID   string
	Reason    string
}

type RefundCreated struct {
	RefundID  string
	PaymentID string
	Amount    int64
}

// UnknownEvent carries the raw name of an event type we do not interpret yet.
type UnknownEvent struct {
	Name string
}

func (PaymentCaptured) EventName() string { return "payment.captured" }
func (PaymentFailed) EventName() string { return "payment.failed" }
func (RefundCreated) EventName() string { return "refund.created" }
func (e UnknownEvent) EventName() string { return e.Name }
func (PaymentCaptured) isWebhookEvent() {}
func (PaymentFailed) isWebhookEvent() {}
func (RefundCreated) isWebhookEvent() {}
func (UnknownEvent) isWebhookEvent() {}

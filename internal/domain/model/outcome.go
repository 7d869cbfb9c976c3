package model

type OutcomeKind string

const (
	OutcomeActivated           OutcomeKind = "activated"
	OutcomeAlreadyActive       OutcomeKind = "already_active"
	OutcomePendingManualReview OutcomeKind = "pending_manual_review"
	OutcomeRejected            OutcomeKind = "rejected"
)

// Outcome is the result of a confirmation attempt. Subscription is set for
// activated and already_active; Reason for the other two. Err carries the
// domain sentinel behind a rejection so transports can map it.
type Outcome struct {
	Kind         OutcomeKind
	Subscription *Subscription
	Reason       string
	Err          error
}

func Activated(s *Subscription) Outcome {
	return Outcome{Kind: OutcomeActivated, Subscription: s}
}

func AlreadyActive(s *Subscription) Outcome {
	return Outcome{Kind: OutcomeAlreadyActive, Subscription: s}
}

func PendingManualReview(reason string) Outcome {
	return Outcome{Kind: OutcomePendingManualReview, Reason: reason}
}

func Rejected(err error) Outcome {
	return Outcome{Kind: OutcomeRejected, Reason: err.Error(), Err: err}
}

func (o Outcome) IsRejected() bool { return o.Kind == OutcomeRejected }

// WebhookAction describes what the engine did with an authenticated webhook.
type WebhookAction string

const (
	WebhookCompleted        WebhookAction = "completed"
	WebhookAlreadyCompleted WebhookAction = "already_completed"
	WebhookMarkedFailed     WebhookAction = "marked_failed"
	WebhookIgnored          WebhookAction = "ignored"
	WebhookLogged           WebhookAction = "logged"
	WebhookAcknowledged     WebhookAction = "acknowledged"
	WebhookInternalError    WebhookAction = "internal_error"
)

// WebhookReceipt is returned for every webhook whose signature verified.
type WebhookReceipt struct {
	Event   string
	OrderID string
	Action  WebhookAction
	Outcome *Outcome
}

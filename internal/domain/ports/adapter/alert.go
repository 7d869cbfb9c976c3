package adapter

import "context"

type AlertSeverity string

const (
	AlertCritical AlertSeverity = "critical"
	AlertWarning  AlertSeverity = "warning"
)

// OpsAlert is a message for the human operators.
type OpsAlert struct {
	Severity AlertSeverity
	Title    string
	Fields   map[string]string
}

// OpsAlerter delivers alerts out of band. Implementations must not block
// the caller on delivery.
type OpsAlerter interface {
	Alert(ctx context.Context, a OpsAlert)
}

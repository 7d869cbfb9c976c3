package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"finance-billing/internal/domain/ports/adapter"
	"finance-billing/internal/infra/metrics"
)

var _ adapter.OpsAlerter = (*LogAlerter)(nil)

// LogAlerter writes alerts to the log. Used when no chat is configured.
type LogAlerter struct {
	log *zerolog.Logger
}

func NewLogAlerter(logger *zerolog.Logger) *LogAlerter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &LogAlerter{log: logger}
}

func (l *LogAlerter) Alert(ctx context.Context, a adapter.OpsAlert) {
	ev := l.log.Warn()
	if a.Severity == adapter.AlertCritical {
		ev = l.log.Error()
	}
	d := zerolog.Dict()
	for k, v := range a.Fields {
		d = d.Str(k, v)
	}
	ev.Str("alert", string(a.Severity)).Dict("fields", d).Msg(a.Title)
	metrics.IncAlert("logged")
}

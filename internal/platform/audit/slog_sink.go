package audit

import "log/slog"

// SlogSink writes audit events to the structured log. This is the default
// sink when no Redis stream is configured.
type SlogSink struct {
	log *slog.Logger
}

func NewSlogSink(log *slog.Logger) *SlogSink {
	return &SlogSink{log: log.With(slog.String("component", "audit"))}
}

func (s *SlogSink) Emit(e Event) {
	attrs := []any{
		slog.String("event", e.Name),
		slog.Time("at", e.At),
	}
	if e.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", e.ActorID))
	}
	if e.TenantID != "" {
		attrs = append(attrs, slog.String("tenant_id", e.TenantID))
	}
	if e.Subject != "" {
		attrs = append(attrs, slog.String("subject", e.Subject))
	}
	for k, v := range e.Detail {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}
	s.log.Info("audit event", attrs...)
}

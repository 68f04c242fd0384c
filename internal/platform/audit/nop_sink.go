package audit

// NopSink discards every event. Used in tests that do not assert on audit
// output.
type NopSink struct{}

func (NopSink) Emit(Event) {}

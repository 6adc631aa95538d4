package emit

// Emitter receives and processes observability events from the wizard
// orchestration layer.
//
// Emitters enable pluggable observability backends:
//   - Logging: stdout, files, syslog
//   - Distributed tracing: OpenTelemetry
//   - In-memory buffering for diagnostics and tests
//
// Implementations should be:
//   - Non-blocking: Avoid slowing down workflow transitions
//   - Thread-safe: May be called while a transition holds internal locks
//   - Resilient: Handle failures gracefully (never crash the workflow)
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	//
	// Emit should not block and should not panic. Backend errors are
	// logged internally and never propagated to the workflow.
	Emit(event Event)
}

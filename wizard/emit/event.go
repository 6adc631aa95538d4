package emit

// Event represents an observability event emitted by the wizard
// orchestration layer.
//
// Events cover the lifecycle of a configuration session:
//   - Session creation, resume, and validation
//   - Step transitions (advance, retreat, jump)
//   - Recovery actions (desync detected, corrective rewrite, hard fallback)
//   - Draft autosave attempts and failures
//
// Events are emitted to an Emitter which can:
//   - Log to stdout/stderr
//   - Send to OpenTelemetry
//   - Buffer for diagnostics
type Event struct {
	// SessionID identifies the configuration session that emitted this event.
	// Empty before a session has been created.
	SessionID string

	// Step is the workflow step index the event relates to.
	// -1 for events with no step context (session creation, validation).
	Step int

	// Component identifies which part of the layer emitted the event,
	// e.g. "controller", "recovery", "autosave", "validator".
	Component string

	// Msg is a short machine-friendly event name, e.g. "transition_applied",
	// "nav_desync", "hard_fallback", "autosave_failed".
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "kind": transition kind (advance/retreat/jump)
	//   - "expected", "actual": step indices around a desync
	//   - "error": error details
	//   - "fallback": encoded deep link for a hard fallback
	Meta map[string]interface{}
}

package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/gamewizard-go/wizard/emit"
	"github.com/dshills/gamewizard-go/wizard/session"
)

// Validator confirms, once per mount, that the resolved session actually
// has persisted data. It must not run until controller initialization has
// fully settled, to avoid false negatives against a session that is
// mid-creation.
//
// On a missing record it attempts one corrective action (re-persisting the
// controller's in-memory config) before declaring the session invalid. On
// invalid, it returns the safe default redirect; performing the redirect
// is the caller's job.
type Validator struct {
	store   session.Store
	emitter emit.Emitter
}

// NewValidator creates a Validator over the given store. emitter may be
// nil.
func NewValidator(store session.Store, emitter emit.Emitter) *Validator {
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	return &Validator{store: store, emitter: emitter}
}

// Validate checks the controller's mounted session against the store.
//
// Returns (nil, nil) when the session is backed by persisted data.
// Returns a redirect deep link together with an error wrapping
// ErrInvalidSession when the session cannot be validated or corrected;
// the redirect points at the safe default location (an empty link).
func (v *Validator) Validate(ctx context.Context, c *Controller) (*DeepLink, error) {
	if !c.Started() {
		return nil, fmt.Errorf("validation before initialization settled: %w", ErrNotStarted)
	}

	id := c.SessionID()
	if id == "" {
		redirect := NewDeepLink()
		return &redirect, fmt.Errorf("no session id resolved: %w", ErrInvalidSession)
	}

	if _, err := v.store.Load(ctx, id); err == nil {
		return nil, nil
	} else if !errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("failed to validate session %q: %w", id, err)
	}

	// Corrective action: re-derive the record from whatever the controller
	// holds in memory before declaring the session invalid.
	snapshot := c.ConfigSnapshot()
	if len(snapshot) > 0 {
		v.emitter.Emit(emit.Event{
			SessionID: id,
			Step:      -1,
			Component: "validator",
			Msg:       "session_repair_attempt",
		})
		if err := v.store.Create(ctx, id, snapshot); err == nil {
			if _, err := v.store.Load(ctx, id); err == nil {
				return nil, nil
			}
		}
	}

	v.emitter.Emit(emit.Event{
		SessionID: id,
		Step:      -1,
		Component: "validator",
		Msg:       "session_invalid",
	})

	redirect := NewDeepLink()
	return &redirect, fmt.Errorf("session %q: %w", id, ErrInvalidSession)
}

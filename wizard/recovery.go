package wizard

import (
	"context"
	"time"

	"github.com/dshills/gamewizard-go/wizard/emit"
)

// Navigation recovery protocol.
//
// Every transition is performed optimistically and then independently
// re-checked, because the original runtime gave no synchronous guarantee
// that a transition's full effect was visible. The timer chain of the
// original is replaced with an awaited sequence against the serialized
// controller, so verification is a direct post-condition check rather than
// a race against an unobserved scheduler. The three tiers survive as
// explicit outcomes:
//
//  1. optimistic: snapshot the discriminator, apply the transition, mirror,
//     persist, then verify both the local index and the persisted step
//     pointer against the expected post-transition value
//  2. corrective: on mismatch, force both to the expected values and
//     re-apply the preserved discriminator (guards against partial-update
//     loss), then verify once more
//  3. hard fallback: still inconsistent, produce a deep link encoding the
//     target step with the force flag and transfer control to the reload
//     hook unconditionally; trades in-memory continuity for guaranteed
//     convergence
//
// The controller mutex is held across the whole sequence, so another
// transition can never interleave before this one reaches a terminal
// state.

// performTransitionLocked runs one transition through the recovery
// protocol. mutate applies the local state change; expected is the
// post-transition step index. Must be called with c.mu held.
func (c *Controller) performTransitionLocked(ctx context.Context, kind TransitionKind, expected int, mutate func()) Transition {
	started := time.Now()
	from := c.state.CurrentIndex

	// Tier 1: snapshot the value that must survive the transition, then
	// apply optimistically.
	discriminator := c.config.String(KeyCategory)

	mutate()
	c.state.Progress = Progress(c.state.CurrentIndex, c.state.TotalSteps)
	c.mirrorLocked()

	if err := c.store.Persist(ctx, c.sessionID, c.config); err != nil {
		c.emitPersistFailureLocked(err)
	}

	result := Transition{Kind: kind, From: from, To: expected}

	if c.verifyLocked(ctx, expected) {
		result.Outcome = OutcomeApplied
		c.emitRecoveryLocked("transition_applied", expected, map[string]interface{}{
			"kind": string(kind),
		})
	} else {
		result.Outcome = c.correctLocked(ctx, kind, expected, discriminator, &result)
	}

	c.metrics.RecordTransition(kind, result.Outcome, time.Since(started).Seconds())
	c.metrics.SetCurrentStep(c.state.CurrentIndex)
	c.notifyAutosaveLocked()

	return result
}

// verifyLocked re-reads both the local index and the store's externally
// visible step pointer and compares them against the expected
// post-transition value.
func (c *Controller) verifyLocked(ctx context.Context, expected int) bool {
	if c.state.CurrentIndex != expected {
		return false
	}

	sess, err := c.store.Load(ctx, c.sessionID)
	if err != nil {
		// Unreadable or missing backing record counts as a mismatch; the
		// corrective tier rewrites it.
		return false
	}

	stored, ok := storedStepPointer(sess.Config)
	return ok && stored == expected
}

// correctLocked runs tiers 2 and 3: a corrective direct write that forces
// local and shared state to the expected values and re-applies the
// preserved discriminator, then a final verification. Returns the terminal
// outcome.
func (c *Controller) correctLocked(ctx context.Context, kind TransitionKind, expected int, discriminator string, result *Transition) Outcome {
	desync := &DesyncError{
		Kind:     kind,
		Expected: expected,
		Local:    c.state.CurrentIndex,
	}
	if sess, err := c.store.Load(ctx, c.sessionID); err == nil {
		if stored, ok := storedStepPointer(sess.Config); ok {
			desync.Stored = stored
		} else {
			desync.Stored = -1
		}
	} else {
		desync.Stored = -1
	}

	c.emitRecoveryLocked("nav_desync", expected, map[string]interface{}{
		"kind":  string(kind),
		"error": desync.Error(),
	})
	c.metrics.RecordCorrection()

	// Tier 2: corrective direct write.
	c.state.CurrentIndex = expected
	c.state.Progress = Progress(expected, c.state.TotalSteps)
	if discriminator != "" {
		c.config[KeyCategory] = discriminator
	}
	c.mirrorLocked()

	if err := c.store.Persist(ctx, c.sessionID, c.config); err != nil {
		c.emitPersistFailureLocked(err)
	}

	if c.verifyLocked(ctx, expected) {
		c.emitRecoveryLocked("transition_corrected", expected, map[string]interface{}{
			"kind": string(kind),
		})
		return OutcomeCorrected
	}

	// Tier 3: hard fallback. Non-cancellable; supersedes everything.
	fallback := DeepLink{Step: expected, Force: true, Game: c.sessionID}
	result.Fallback = &fallback

	c.emitRecoveryLocked("hard_fallback", expected, map[string]interface{}{
		"kind":     string(kind),
		"fallback": fallback.Encode(),
	})
	c.metrics.RecordFallback()

	if c.reload != nil {
		c.reload(fallback)
	}

	return OutcomeFallback
}

func (c *Controller) emitRecoveryLocked(msg string, step int, meta map[string]interface{}) {
	c.emitter.Emit(emit.Event{
		SessionID: c.sessionID,
		Step:      step,
		Component: "recovery",
		Msg:       msg,
		Meta:      meta,
	})
}

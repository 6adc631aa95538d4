package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/gamewizard-go/wizard/emit"
	"github.com/dshills/gamewizard-go/wizard/session"
)

// TransitionKind names the workflow transitions.
type TransitionKind string

const (
	KindAdvance TransitionKind = "advance"
	KindRetreat TransitionKind = "retreat"
	KindJump    TransitionKind = "jump"
)

// Outcome is the terminal state of the three-tier recovery protocol for a
// single transition: applied optimistically, applied after a corrective
// rewrite, or converged via hard fallback.
type Outcome string

const (
	// OutcomeNoop means the transition required no state change
	// (retreat at step 0, jump to the current step, advance past the end).
	OutcomeNoop Outcome = "noop"

	// OutcomeApplied means the optimistic write verified cleanly.
	OutcomeApplied Outcome = "applied"

	// OutcomeCorrected means verification mismatched once and the
	// corrective rewrite converged.
	OutcomeCorrected Outcome = "corrected"

	// OutcomeFallback means correction also failed and a hard-reload deep
	// link was produced. The reload hook has already been invoked.
	OutcomeFallback Outcome = "fallback"
)

// Transition reports the settled result of a single workflow transition.
type Transition struct {
	Kind    TransitionKind
	From    int
	To      int
	Outcome Outcome

	// Completed is set when Advance was called on the final step: the
	// workflow is finished and position did not move.
	Completed bool

	// Fallback carries the hard-reload deep link when Outcome is
	// OutcomeFallback.
	Fallback *DeepLink
}

// State is the controller-owned workflow position. It is mirrored (not
// owned) inside the config's reserved workflow sub-tree for persistence.
//
// Invariants after any settled transition:
//   - 0 <= CurrentIndex < TotalSteps
//   - Completed contains only ids of steps with index < CurrentIndex,
//     except revisits: a step once completed stays marked when retreated to
//   - Progress == Progress(CurrentIndex, TotalSteps)
type State struct {
	Variant      Variant
	CurrentIndex int
	TotalSteps   int
	Completed    map[string]bool
	Progress     int
}

// DraftNotifier receives config snapshots for debounced draft autosave.
// Implemented by draft.Autosaver.
type DraftNotifier interface {
	// BindSession fixes the draft id for the session's lifetime.
	BindSession(id string)

	// Notify hands over a config snapshot and the current step. The
	// receiver owns the snapshot.
	Notify(config map[string]interface{}, step int)
}

// Controller owns the workflow position and is the single serialized entry
// point for every mutation of the shared config: step transitions and
// editor patches both pass through it, so no writer can erase another's
// contribution.
//
// Every transition runs the three-tier navigation recovery protocol as an
// awaited sequence (optimistic write, post-condition verification,
// corrective rewrite, hard fallback); see recovery.go.
type Controller struct {
	mu sync.Mutex

	registry *Registry
	store    session.Store
	resolver *session.Resolver
	emitter  emit.Emitter
	metrics  *PrometheusMetrics
	autosave DraftNotifier
	reload   func(DeepLink)
	now      func() time.Time

	started   bool
	sessionID string
	config    Config
	state     State
	steps     []StepDefinition
}

// New creates a Controller over the given session store.
//
// The store is required; everything else defaults: the built-in registry,
// a NullEmitter, no metrics, no autosave, no reload hook.
func New(store session.Store, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}

	c := &Controller{
		registry: NewRegistry(),
		store:    store,
		emitter:  emit.NewNullEmitter(),
		now:      time.Now,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.resolver = session.NewResolver(func() string {
		return c.config.String(KeySessionID)
	}, store)

	return c, nil
}

// Start mounts the workflow from a deep link: resolves or creates the
// session, hydrates position from the persisted workflow sub-tree, and
// honors the link's target step.
//
// A link with Force set bypasses soft verification and positions directly;
// this is the re-entry path of the hard fallback.
func (c *Controller) Start(ctx context.Context, link DeepLink) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := link.Game
	if id == "" {
		resolved, err := c.resolver.Resolve(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve session: %w", err)
		}
		id = resolved
	}

	if id == "" {
		// No resolvable session: first entry to the workflow.
		id = session.NewID(c.now())
		c.sessionID = id
		c.config = TemplateConfig(link.Template)
		c.hydrateLocked()
		c.mirrorLocked()

		if err := c.store.Create(ctx, id, c.config); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		c.resolver.Prime(id)
		c.emitLocked("session_created", -1, map[string]interface{}{
			"template": link.Template,
		})
	} else {
		sess, err := c.store.Load(ctx, id)
		switch {
		case errors.Is(err, session.ErrNotFound):
			// A deep link addressed a session with no backing record.
			// Re-seed under the same id so the address stays valid.
			c.sessionID = id
			c.config = TemplateConfig(link.Template)
			c.hydrateLocked()
			c.mirrorLocked()
			if err := c.store.Create(ctx, id, c.config); err != nil {
				return fmt.Errorf("failed to recreate session: %w", err)
			}
			c.resolver.Prime(id)
			c.emitLocked("session_recreated", -1, nil)
		case err != nil:
			return fmt.Errorf("failed to load session: %w", err)
		default:
			c.sessionID = id
			c.config = Config(sess.Config)
			if c.config == nil {
				c.config = Config{}
			}
			c.hydrateLocked()
			c.mirrorLocked()
			if err := c.store.SetActiveSession(ctx, id); err != nil {
				c.emitPersistFailureLocked(err)
			}
			c.resolver.Prime(id)
			c.emitLocked("session_resumed", c.state.CurrentIndex, nil)
		}
	}

	c.started = true

	if link.HasStep() && link.Step != c.state.CurrentIndex {
		target := clamp(link.Step, 0, c.state.TotalSteps-1)
		if link.Force {
			// Forced deep-link entry: position directly, skip the soft
			// verification tiers. This is how a hard fallback converges.
			c.state.CurrentIndex = target
			c.state.Progress = Progress(target, c.state.TotalSteps)
			c.mirrorLocked()
			if err := c.store.Persist(ctx, c.sessionID, c.config); err != nil {
				c.emitPersistFailureLocked(err)
			}
			c.emitLocked("forced_entry", target, nil)
		} else if target != c.state.CurrentIndex {
			c.performTransitionLocked(ctx, KindJump, target, func() {
				c.state.CurrentIndex = target
			})
		}
	} else {
		if err := c.store.Persist(ctx, c.sessionID, c.config); err != nil {
			c.emitPersistFailureLocked(err)
		}
	}

	if c.autosave != nil {
		c.autosave.BindSession(c.sessionID)
	}
	c.notifyAutosaveLocked()
	c.metrics.SetCurrentStep(c.state.CurrentIndex)

	return nil
}

// Advance marks the current step completed and moves one step forward.
// On the final step it signals workflow completion without moving.
func (c *Controller) Advance(ctx context.Context) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return Transition{}, ErrNotStarted
	}

	current := c.state.CurrentIndex
	if current >= c.state.TotalSteps-1 {
		c.emitLocked("workflow_complete", current, nil)
		return Transition{
			Kind: KindAdvance, From: current, To: current,
			Outcome: OutcomeNoop, Completed: true,
		}, nil
	}

	stepID := c.steps[current].ID
	return c.performTransitionLocked(ctx, KindAdvance, current+1, func() {
		c.state.Completed[stepID] = true
		c.state.CurrentIndex = current + 1
	}), nil
}

// Retreat moves one step back. No-op at step 0. Completion flags are not
// unmarked: a step once completed stays completed when revisited.
func (c *Controller) Retreat(ctx context.Context) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return Transition{}, ErrNotStarted
	}

	current := c.state.CurrentIndex
	if current == 0 {
		return Transition{Kind: KindRetreat, From: 0, To: 0, Outcome: OutcomeNoop}, nil
	}

	return c.performTransitionLocked(ctx, KindRetreat, current-1, func() {
		c.state.CurrentIndex = current - 1
	}), nil
}

// JumpTo moves directly to a target step, clamped into range. Jumping to
// the current step is a no-op with no writes. Intermediate steps are not
// required to be completed: navigation is deliberately free.
func (c *Controller) JumpTo(ctx context.Context, target int) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return Transition{}, ErrNotStarted
	}

	current := c.state.CurrentIndex
	clamped := clamp(target, 0, c.state.TotalSteps-1)
	if clamped == current {
		return Transition{Kind: KindJump, From: current, To: current, Outcome: OutcomeNoop}, nil
	}

	return c.performTransitionLocked(ctx, KindJump, clamped, func() {
		c.state.CurrentIndex = clamped
	}), nil
}

// ApplyUpdate is the single serialized entry point through which step
// editors mutate the shared config. The patch is merged recursively; keys
// absent from the patch are never dropped.
//
// The reserved workflow sub-tree and the session id mirror are stripped
// from patches: editors must not write them.
//
// If the patch changes the category discriminator, the variant is
// re-resolved; when the current index exceeds the new step count, position
// resets to 0 and completion flags are cleared (silent, not an error).
func (c *Controller) ApplyUpdate(ctx context.Context, patch Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return ErrNotStarted
	}

	if _, ok := patch[KeyWorkflow]; ok {
		patch = shallowCopyWithout(patch, KeyWorkflow, KeySessionID)
		c.emitLocked("reserved_subtree_rejected", c.state.CurrentIndex, nil)
	} else if _, ok := patch[KeySessionID]; ok {
		patch = shallowCopyWithout(patch, KeyWorkflow, KeySessionID)
	}

	c.config.Merge(patch)

	variant := c.registry.ResolveVariant(c.config)
	if variant != c.state.Variant {
		c.applyVariantLocked(variant)
	}

	c.state.Progress = Progress(c.state.CurrentIndex, c.state.TotalSteps)
	c.mirrorLocked()

	if err := c.store.Persist(ctx, c.sessionID, c.config); err != nil {
		// In-memory state remains authoritative until the next successful
		// write; surfaced later as SessionNotFound only across a reload.
		c.emitPersistFailureLocked(err)
	}

	c.notifyAutosaveLocked()
	return nil
}

// applyVariantLocked re-derives the step schema after a variant change and
// clamps position per the variant-mismatch rule.
func (c *Controller) applyVariantLocked(variant Variant) {
	c.state.Variant = variant
	c.steps = c.registry.Steps(variant)
	c.state.TotalSteps = len(c.steps)

	if c.state.CurrentIndex >= c.state.TotalSteps {
		c.state.CurrentIndex = 0
		c.state.Completed = make(map[string]bool)
		c.emitLocked("variant_reset", 0, map[string]interface{}{
			"variant": string(variant),
		})
		return
	}

	// Completion flags carry over only for step ids that exist in the new
	// schema below the current position.
	kept := make(map[string]bool, len(c.state.Completed))
	for i := 0; i < c.state.CurrentIndex; i++ {
		if c.state.Completed[c.steps[i].ID] {
			kept[c.steps[i].ID] = true
		}
	}
	c.state.Completed = kept
	c.emitLocked("variant_changed", c.state.CurrentIndex, map[string]interface{}{
		"variant": string(variant),
	})
}

// State returns a copy of the current workflow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	st.Completed = make(map[string]bool, len(c.state.Completed))
	for k, v := range c.state.Completed {
		st.Completed[k] = v
	}
	return st
}

// SessionID returns the mounted session id, "" before Start.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Started reports whether initialization has fully settled. The session
// validator must not run before this is true.
func (c *Controller) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Steps returns the active step schema. The slice is shared; callers must
// not mutate it.
func (c *Controller) Steps() []StepDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps
}

// ConfigSnapshot returns a deep copy of the shared config.
func (c *Controller) ConfigSnapshot() Config {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot, err := c.config.Clone()
	if err != nil {
		return Config{}
	}
	return snapshot
}

// hydrateLocked derives variant, step schema, and position from the
// current config. Re-hydrates from the persisted workflow sub-tree on
// resume; clamps everything into range.
func (c *Controller) hydrateLocked() {
	variant := c.registry.ResolveVariant(c.config)
	c.state.Variant = variant
	c.steps = c.registry.Steps(variant)
	c.state.TotalSteps = len(c.steps)
	c.state.CurrentIndex = 0
	c.state.Completed = make(map[string]bool)

	if wf, ok := asMap(c.config[KeyWorkflow]); ok {
		if idx, ok := intFrom(wf[keyCurrentStep]); ok {
			c.state.CurrentIndex = clamp(idx, 0, c.state.TotalSteps-1)
		}
		if completed, ok := asMap(wf[keyCompletedSteps]); ok {
			for id, v := range completed {
				if b, ok := v.(bool); ok && b {
					c.state.Completed[id] = true
				}
			}
		}
	}

	c.state.Progress = Progress(c.state.CurrentIndex, c.state.TotalSteps)
}

// mirrorLocked writes the controller-owned workflow state into the
// reserved config sub-tree, preserving every unrelated config key.
func (c *Controller) mirrorLocked() {
	completed := make(map[string]interface{}, len(c.state.Completed))
	for id, v := range c.state.Completed {
		completed[id] = v
	}

	c.config[KeyWorkflow] = map[string]interface{}{
		keyCurrentStep:    c.state.CurrentIndex,
		keyTotalSteps:     c.state.TotalSteps,
		keyProgress:       c.state.Progress,
		keyCompletedSteps: completed,
	}
	c.config[KeySessionID] = c.sessionID
}

// notifyAutosaveLocked hands a config snapshot to the draft autosaver.
func (c *Controller) notifyAutosaveLocked() {
	if c.autosave == nil {
		return
	}
	snapshot, err := c.config.Clone()
	if err != nil {
		return
	}
	c.autosave.Notify(snapshot, c.state.CurrentIndex)
}

func (c *Controller) emitLocked(msg string, step int, meta map[string]interface{}) {
	c.emitter.Emit(emit.Event{
		SessionID: c.sessionID,
		Step:      step,
		Component: "controller",
		Msg:       msg,
		Meta:      meta,
	})
}

func (c *Controller) emitPersistFailureLocked(err error) {
	c.emitter.Emit(emit.Event{
		SessionID: c.sessionID,
		Step:      c.state.CurrentIndex,
		Component: "controller",
		Msg:       "persist_failed",
		Meta:      map[string]interface{}{"error": err.Error()},
	})
}

func shallowCopyWithout(patch Config, drop ...string) Config {
	out := make(Config, len(patch))
	for k, v := range patch {
		out[k] = v
	}
	for _, k := range drop {
		delete(out, k)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

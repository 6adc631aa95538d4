package draft

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/gamewizard-go/wizard/emit"
)

// DefaultDebounce is the autosave delay used when none is specified.
const DefaultDebounce = 2 * time.Second

// Autosaver is the debounced background sync of the current configuration
// and position to the remote draft endpoint.
//
// Every Notify (re)starts the debounce timer; only an uninterrupted timer
// fires a save. Failures are logged and not retried inline: the next
// natural edit re-triggers the debounce.
//
// The draft id is derived once per session (BindSession) and held stable
// for the session's lifetime; before a session exists PlaceholderID is
// used.
type Autosaver struct {
	mu sync.Mutex

	client   Client
	delay    time.Duration
	emitter  emit.Emitter
	onResult func(error)

	draftID string
	timer   *time.Timer
	pending *pendingDraft
	closed  bool
}

type pendingDraft struct {
	config map[string]interface{}
	step   int
}

// NewAutosaver creates an Autosaver over the given client. A delay of 0
// defaults to DefaultDebounce; a nil emitter discards events.
func NewAutosaver(client Client, delay time.Duration, emitter emit.Emitter) *Autosaver {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	return &Autosaver{
		client:  client,
		delay:   delay,
		emitter: emitter,
		draftID: PlaceholderID,
	}
}

// SetOnResult installs a hook invoked after every save attempt with its
// error (nil on success). Used to feed metrics.
func (a *Autosaver) SetOnResult(fn func(error)) {
	a.mu.Lock()
	a.onResult = fn
	a.mu.Unlock()
}

// BindSession fixes the draft id to the session id. Only the first bind
// takes effect; the id stays stable for the session's lifetime.
func (a *Autosaver) BindSession(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id == "" || a.draftID != PlaceholderID {
		return
	}
	a.draftID = id
}

// DraftID returns the current draft id.
func (a *Autosaver) DraftID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.draftID
}

// Notify records the latest configuration snapshot and step, and
// (re)starts the debounce timer. The receiver takes ownership of the
// snapshot.
func (a *Autosaver) Notify(config map[string]interface{}, step int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	a.pending = &pendingDraft{config: config, step: step}

	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

// Flush sends any pending draft immediately, bypassing the debounce.
// Used at shutdown so the last edits are not lost to a stopped timer.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	pending := a.pending
	a.pending = nil
	draftID := a.draftID
	a.mu.Unlock()

	if pending == nil {
		return nil
	}
	return a.save(ctx, draftID, pending)
}

// Close stops the debounce timer. Pending state is discarded; call Flush
// first to deliver it.
func (a *Autosaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = nil
}

// fire runs when the debounce timer elapses uninterrupted.
func (a *Autosaver) fire() {
	a.mu.Lock()
	if a.closed || a.pending == nil {
		a.mu.Unlock()
		return
	}
	pending := a.pending
	a.pending = nil
	draftID := a.draftID
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_ = a.save(ctx, draftID, pending)
}

func (a *Autosaver) save(ctx context.Context, draftID string, pending *pendingDraft) error {
	d := Draft{
		DraftID:     draftID,
		GameName:    stringField(pending.config, "gameName"),
		Description: stringField(pending.config, "description"),
		LastUpdated: time.Now().UTC(),
		CurrentStep: pending.step,
		Config:      pending.config,
	}
	if d.GameName == "" {
		d.GameName = "Untitled Game"
	}

	err := a.client.Save(ctx, d)

	if err != nil {
		// Not retried inline: the next edit re-triggers the debounce.
		a.emitter.Emit(emit.Event{
			SessionID: draftID,
			Step:      pending.step,
			Component: "autosave",
			Msg:       "autosave_failed",
			Meta:      map[string]interface{}{"error": err.Error()},
		})
	} else {
		a.emitter.Emit(emit.Event{
			SessionID: draftID,
			Step:      pending.step,
			Component: "autosave",
			Msg:       "autosave_sent",
		})
	}

	a.mu.Lock()
	onResult := a.onResult
	a.mu.Unlock()
	if onResult != nil {
		onResult(err)
	}

	return err
}

func stringField(config map[string]interface{}, key string) string {
	if config == nil {
		return ""
	}
	s, _ := config[key].(string)
	return s
}

package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/dshills/gamewizard-go/wizard/session"
)

func fixedClock() func() time.Time {
	at := time.UnixMilli(1700000000000)
	return func() time.Time { return at }
}

func newStartedController(t *testing.T, store session.Store, link DeepLink, opts ...Option) *Controller {
	t.Helper()
	opts = append(opts, WithClock(fixedClock()))
	c, err := New(store, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(context.Background(), link); err != nil {
		t.Fatal(err)
	}
	return c
}

// countingStore wraps a Store and counts Persist calls so tests can assert
// that no-op transitions issue no redundant writes.
type countingStore struct {
	session.Store
	persists int
}

func (s *countingStore) Persist(ctx context.Context, id string, config map[string]interface{}) error {
	s.persists++
	return s.Store.Persist(ctx, id, config)
}

func TestController_StartNewSession(t *testing.T) {
	store := session.NewMemStore()
	c := newStartedController(t, store, NewDeepLink())

	if got := c.SessionID(); got != "game_1700000000000" {
		t.Errorf("SessionID = %q, want game_1700000000000", got)
	}

	st := c.State()
	if st.Variant != VariantSlots {
		t.Errorf("Variant = %v, want %v (default template)", st.Variant, VariantSlots)
	}
	if st.CurrentIndex != 0 || st.TotalSteps != 12 {
		t.Errorf("position = %d/%d, want 0/12", st.CurrentIndex, st.TotalSteps)
	}
	if st.Progress != 0 {
		t.Errorf("Progress = %d, want 0", st.Progress)
	}

	active, err := store.ActiveSession(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if active != c.SessionID() {
		t.Errorf("active pointer = %q, want %q", active, c.SessionID())
	}
}

func TestController_NewSessionThreeAdvances(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemStore()
	c := newStartedController(t, store, NewDeepLink())

	for i := 0; i < 3; i++ {
		tr, err := c.Advance(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Outcome != OutcomeApplied {
			t.Fatalf("advance %d outcome = %v, want %v", i, tr.Outcome, OutcomeApplied)
		}
	}

	st := c.State()
	if st.CurrentIndex != 3 {
		t.Errorf("CurrentIndex = %d, want 3", st.CurrentIndex)
	}
	if st.Progress != 27 {
		t.Errorf("Progress = %d, want 27", st.Progress)
	}
	for _, id := range []string{"theme", "layout", "symbols"} {
		if !st.Completed[id] {
			t.Errorf("step %q not marked completed", id)
		}
	}
	if len(st.Completed) != 3 {
		t.Errorf("Completed has %d entries, want 3", len(st.Completed))
	}

	// The persisted document must carry the same position.
	sess, err := store.Load(ctx, c.SessionID())
	if err != nil {
		t.Fatal(err)
	}
	stored, ok := storedStepPointer(sess.Config)
	if !ok || stored != 3 {
		t.Errorf("persisted step pointer = %d, %v; want 3, true", stored, ok)
	}
}

func TestController_AdvanceThenRetreatKeepsCompletion(t *testing.T) {
	ctx := context.Background()
	c := newStartedController(t, session.NewMemStore(), NewDeepLink())

	if _, err := c.Advance(ctx); err != nil {
		t.Fatal(err)
	}
	tr, err := c.Retreat(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tr.From != 1 || tr.To != 0 {
		t.Errorf("retreat %d->%d, want 1->0", tr.From, tr.To)
	}

	st := c.State()
	if st.CurrentIndex != 0 {
		t.Errorf("CurrentIndex = %d, want 0", st.CurrentIndex)
	}
	if !st.Completed["theme"] {
		t.Error("revisiting a completed step must not unmark it")
	}
}

func TestController_RetreatAtZeroIsNoop(t *testing.T) {
	c := newStartedController(t, session.NewMemStore(), NewDeepLink())

	tr, err := c.Retreat(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != OutcomeNoop {
		t.Errorf("Outcome = %v, want %v", tr.Outcome, OutcomeNoop)
	}
	if got := c.State().CurrentIndex; got != 0 {
		t.Errorf("CurrentIndex = %d, want 0", got)
	}
}

func TestController_AdvanceOnFinalStepSignalsCompletion(t *testing.T) {
	ctx := context.Background()
	c := newStartedController(t, session.NewMemStore(), DeepLink{Step: -1, Template: "crash"})

	// Crash has 3 steps; move to the last one.
	if _, err := c.JumpTo(ctx, 2); err != nil {
		t.Fatal(err)
	}
	tr, err := c.Advance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Completed {
		t.Error("Completed = false, want true")
	}
	if tr.From != 2 || tr.To != 2 {
		t.Errorf("final advance %d->%d, want 2->2", tr.From, tr.To)
	}
	if got := c.State().Progress; got != 100 {
		t.Errorf("Progress = %d, want 100", got)
	}
}

func TestController_JumpToIsFreeAndClamped(t *testing.T) {
	ctx := context.Background()
	c := newStartedController(t, session.NewMemStore(), NewDeepLink())

	// Free navigation: jumping far ahead needs no completed steps.
	tr, err := c.JumpTo(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if tr.To != 5 || tr.Outcome != OutcomeApplied {
		t.Errorf("jump = %+v, want To=5 applied", tr)
	}
	if len(c.State().Completed) != 0 {
		t.Error("jumping must not mark steps completed")
	}

	// Out-of-range targets clamp.
	tr, err = c.JumpTo(ctx, 99)
	if err != nil {
		t.Fatal(err)
	}
	if tr.To != 11 {
		t.Errorf("clamped To = %d, want 11", tr.To)
	}
	tr, err = c.JumpTo(ctx, -3)
	if err != nil {
		t.Fatal(err)
	}
	if tr.To != 0 {
		t.Errorf("clamped To = %d, want 0", tr.To)
	}
}

func TestController_JumpToCurrentStepWritesNothing(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{Store: session.NewMemStore()}
	c := newStartedController(t, counting, NewDeepLink())

	if _, err := c.JumpTo(ctx, 4); err != nil {
		t.Fatal(err)
	}
	before := counting.persists

	tr, err := c.JumpTo(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != OutcomeNoop {
		t.Errorf("Outcome = %v, want %v", tr.Outcome, OutcomeNoop)
	}
	if counting.persists != before {
		t.Errorf("no-op jump issued %d extra writes", counting.persists-before)
	}
}

func TestController_ResumeHydratesPosition(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemStore()

	err := store.Create(ctx, "game_77", map[string]interface{}{
		KeyCategory: "instant_win",
		"workflow": map[string]interface{}{
			"currentStep": float64(3),
			"totalSteps":  float64(6),
			"completedSteps": map[string]interface{}{
				"theme": true,
				"odds":  true,
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	c := newStartedController(t, store, DeepLink{Step: -1, Game: "game_77"})

	st := c.State()
	if st.Variant != VariantInstant {
		t.Errorf("Variant = %v, want %v", st.Variant, VariantInstant)
	}
	if st.CurrentIndex != 3 || st.TotalSteps != 6 {
		t.Errorf("position = %d/%d, want 3/6", st.CurrentIndex, st.TotalSteps)
	}
	if st.Progress != 60 {
		t.Errorf("Progress = %d, want 60", st.Progress)
	}
	if !st.Completed["theme"] || !st.Completed["odds"] {
		t.Error("completion flags lost on resume")
	}
}

func TestController_ResumeClampsOutOfRangePointer(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemStore()

	err := store.Create(ctx, "game_88", map[string]interface{}{
		KeyCategory: "crash",
		"workflow": map[string]interface{}{
			"currentStep": float64(9),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	c := newStartedController(t, store, DeepLink{Step: -1, Game: "game_88"})
	if got := c.State().CurrentIndex; got != 2 {
		t.Errorf("CurrentIndex = %d, want clamped 2", got)
	}
}

func TestController_DeepLinkRecreatesMissingSession(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemStore()

	c := newStartedController(t, store, DeepLink{Step: -1, Game: "game_gone"})
	if got := c.SessionID(); got != "game_gone" {
		t.Errorf("SessionID = %q, want game_gone (re-seeded under same id)", got)
	}
	if _, err := store.Load(ctx, "game_gone"); err != nil {
		t.Errorf("recreated session not persisted: %v", err)
	}
}

func TestController_ForcedDeepLinkPositionsDirectly(t *testing.T) {
	store := session.NewMemStore()
	c := newStartedController(t, store, DeepLink{Step: 7, Force: true})

	st := c.State()
	if st.CurrentIndex != 7 {
		t.Errorf("CurrentIndex = %d, want 7", st.CurrentIndex)
	}
	if st.Progress != Progress(7, 12) {
		t.Errorf("Progress = %d, want %d", st.Progress, Progress(7, 12))
	}
}

func TestController_ApplyUpdateMergesWithoutDroppingSiblings(t *testing.T) {
	ctx := context.Background()
	c := newStartedController(t, session.NewMemStore(), NewDeepLink())

	err := c.ApplyUpdate(ctx, Config{
		"theme": map[string]interface{}{"palette": "desert", "music": "banjo"},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = c.ApplyUpdate(ctx, Config{
		"theme": map[string]interface{}{"palette": "midnight"},
	})
	if err != nil {
		t.Fatal(err)
	}

	theme := c.ConfigSnapshot().Sub("theme")
	if theme["palette"] != "midnight" || theme["music"] != "banjo" {
		t.Errorf("theme = %v, want merged palette=midnight music=banjo", theme)
	}
}

func TestController_ApplyUpdateStripsReservedKeys(t *testing.T) {
	ctx := context.Background()
	c := newStartedController(t, session.NewMemStore(), NewDeepLink())

	if _, err := c.JumpTo(ctx, 4); err != nil {
		t.Fatal(err)
	}
	err := c.ApplyUpdate(ctx, Config{
		KeyWorkflow:  map[string]interface{}{"currentStep": 0},
		KeySessionID: "game_forged",
		"gameName":   "Desert Gold",
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := c.State().CurrentIndex; got != 4 {
		t.Errorf("CurrentIndex = %d, editor patch must not move position", got)
	}
	snap := c.ConfigSnapshot()
	if got := snap.String(KeySessionID); got != c.SessionID() {
		t.Errorf("gameId = %q, want %q", got, c.SessionID())
	}
	if got := snap.String("gameName"); got != "Desert Gold" {
		t.Errorf("gameName = %q, legitimate keys must still merge", got)
	}
}

func TestController_VariantChangeResetsOutOfRangePosition(t *testing.T) {
	ctx := context.Background()
	c := newStartedController(t, session.NewMemStore(), DeepLink{Step: -1, Template: "instant"})

	for i := 0; i < 5; i++ {
		if _, err := c.Advance(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if got := c.State().CurrentIndex; got != 5 {
		t.Fatalf("setup: CurrentIndex = %d, want 5", got)
	}

	// Crash has 3 steps: index 5 is out of range, so position resets.
	if err := c.ApplyUpdate(ctx, Config{KeyCategory: "crash"}); err != nil {
		t.Fatal(err)
	}

	st := c.State()
	if st.Variant != VariantCrash {
		t.Errorf("Variant = %v, want %v", st.Variant, VariantCrash)
	}
	if st.CurrentIndex != 0 {
		t.Errorf("CurrentIndex = %d, want 0 after variant reset", st.CurrentIndex)
	}
	if st.TotalSteps != 3 {
		t.Errorf("TotalSteps = %d, want 3", st.TotalSteps)
	}
	if len(st.Completed) != 0 {
		t.Errorf("Completed = %v, want cleared", st.Completed)
	}
}

func TestController_VariantChangeKeepsInRangePosition(t *testing.T) {
	ctx := context.Background()
	c := newStartedController(t, session.NewMemStore(), DeepLink{Step: -1, Template: "instant"})

	if _, err := c.Advance(ctx); err != nil {
		t.Fatal(err)
	}

	// Index 1 is valid in every variant; both schemas share a "theme"
	// step at position 0, so the flag carries over.
	if err := c.ApplyUpdate(ctx, Config{KeyCategory: "video_slots"}); err != nil {
		t.Fatal(err)
	}

	st := c.State()
	if st.Variant != VariantSlots || st.TotalSteps != 12 {
		t.Errorf("schema = %v/%d, want slots/12", st.Variant, st.TotalSteps)
	}
	if st.CurrentIndex != 1 {
		t.Errorf("CurrentIndex = %d, want 1 (in range, no reset)", st.CurrentIndex)
	}
	if !st.Completed["theme"] {
		t.Error("shared step id should stay completed across variants")
	}
}

func TestController_OperationsBeforeStart(t *testing.T) {
	c, err := New(session.NewMemStore())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := c.Advance(ctx); err != ErrNotStarted {
		t.Errorf("Advance err = %v, want ErrNotStarted", err)
	}
	if _, err := c.Retreat(ctx); err != ErrNotStarted {
		t.Errorf("Retreat err = %v, want ErrNotStarted", err)
	}
	if _, err := c.JumpTo(ctx, 2); err != ErrNotStarted {
		t.Errorf("JumpTo err = %v, want ErrNotStarted", err)
	}
	if err := c.ApplyUpdate(ctx, Config{"x": 1}); err != ErrNotStarted {
		t.Errorf("ApplyUpdate err = %v, want ErrNotStarted", err)
	}
}

func TestController_ConcurrentAdvancesStaySerialized(t *testing.T) {
	ctx := context.Background()
	c := newStartedController(t, session.NewMemStore(), NewDeepLink())

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			if _, err := c.Advance(ctx); err != nil {
				t.Error(err)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}

	st := c.State()
	if st.CurrentIndex != 5 {
		t.Errorf("CurrentIndex = %d, want 5 after 5 serialized advances", st.CurrentIndex)
	}
	if st.Progress != Progress(5, 12) {
		t.Errorf("Progress = %d, want %d", st.Progress, Progress(5, 12))
	}
}

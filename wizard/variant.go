package wizard

// Variant is the step-sequence family selected by the config's category
// discriminator: slot-style, instant-win, or crash-style workflows.
type Variant string

const (
	VariantSlots   Variant = "slots"
	VariantInstant Variant = "instant"
	VariantCrash   Variant = "crash"
)

// DefaultVariant is selected when the discriminator matches no membership
// set (including a brand-new config with no category chosen yet).
const DefaultVariant = VariantSlots

// StepDefinition describes one screen/stage in the wizard. Immutable;
// constructed once per variant by the Registry.
type StepDefinition struct {
	// ID is the stable string identifier used in completion tracking.
	ID string

	// Title and Description label the step in navigation UI.
	Title       string
	Description string

	// Component is an opaque reference to the editor screen rendering
	// this step. The orchestration layer never interprets it.
	Component string
}

// membershipSet maps a fixed set of category values to a variant.
// Evaluated in order; first match wins.
type membershipSet struct {
	variant    Variant
	categories map[string]struct{}
}

// Registry is the pure mapping from workflow variant to its ordered step
// schema. It holds no mutable state: step slices are built once and the
// same slice is returned on every call, so downstream consumers can rely
// on identity to skip recomputation.
type Registry struct {
	steps      map[Variant][]StepDefinition
	membership []membershipSet
}

// NewRegistry builds the fixed step schemas for all variants.
func NewRegistry() *Registry {
	return &Registry{
		steps: map[Variant][]StepDefinition{
			VariantSlots:   slotsSteps(),
			VariantInstant: instantSteps(),
			VariantCrash:   crashSteps(),
		},
		membership: []membershipSet{
			{
				variant: VariantSlots,
				categories: set(
					"classic_slots", "video_slots", "megaways", "cluster_pays",
				),
			},
			{
				variant: VariantInstant,
				categories: set(
					"instant_win", "scratch", "plinko", "mines",
				),
			},
			{
				variant: VariantCrash,
				categories: set(
					"crash", "aviator", "rocket",
				),
			},
		},
	}
}

// ResolveVariant classifies a config into a variant by inspecting the
// category discriminator against the fixed membership sets. First matching
// set wins; DefaultVariant when none match.
func (r *Registry) ResolveVariant(cfg Config) Variant {
	category := cfg.String(KeyCategory)
	if category == "" {
		return DefaultVariant
	}

	for _, ms := range r.membership {
		if _, ok := ms.categories[category]; ok {
			return ms.variant
		}
	}
	return DefaultVariant
}

// Steps returns the ordered step schema for a variant. The returned slice
// is shared and must not be mutated by callers; identity is stable across
// calls for the same variant.
func (r *Registry) Steps(v Variant) []StepDefinition {
	steps, ok := r.steps[v]
	if !ok {
		return r.steps[DefaultVariant]
	}
	return steps
}

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func slotsSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "theme", Title: "Theme", Description: "Pick the visual theme and setting", Component: "theme-picker"},
		{ID: "layout", Title: "Reel Layout", Description: "Choose reels, rows and grid shape", Component: "layout-editor"},
		{ID: "symbols", Title: "Symbols", Description: "Define the symbol set and rarities", Component: "symbol-workshop"},
		{ID: "paylines", Title: "Paylines", Description: "Configure win lines and ways", Component: "payline-editor"},
		{ID: "math", Title: "Math Model", Description: "Tune RTP, volatility and hit rate", Component: "math-lab"},
		{ID: "bonus", Title: "Bonus Features", Description: "Add bonus rounds and modifiers", Component: "bonus-builder"},
		{ID: "freespins", Title: "Free Spins", Description: "Configure free spin triggers and retriggers", Component: "freespin-editor"},
		{ID: "jackpot", Title: "Jackpots", Description: "Optional fixed or progressive jackpots", Component: "jackpot-editor"},
		{ID: "audio", Title: "Sound", Description: "Select music and effect sets", Component: "audio-picker"},
		{ID: "animation", Title: "Animation", Description: "Set win and transition animations", Component: "animation-workshop"},
		{ID: "assets", Title: "Assets", Description: "Generate and review art assets", Component: "asset-generator"},
		{ID: "review", Title: "Review", Description: "Review and publish the game definition", Component: "review-screen"},
	}
}

func instantSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "theme", Title: "Theme", Description: "Pick the visual theme and setting", Component: "theme-picker"},
		{ID: "odds", Title: "Odds", Description: "Configure win odds and ticket tiers", Component: "odds-editor"},
		{ID: "prizes", Title: "Prize Table", Description: "Define the prize ladder", Component: "prize-editor"},
		{ID: "artwork", Title: "Artwork", Description: "Generate scratch surfaces and reveals", Component: "asset-generator"},
		{ID: "audio", Title: "Sound", Description: "Select music and effect sets", Component: "audio-picker"},
		{ID: "review", Title: "Review", Description: "Review and publish the game definition", Component: "review-screen"},
	}
}

func crashSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "curve", Title: "Multiplier Curve", Description: "Shape the crash curve and house edge", Component: "curve-lab"},
		{ID: "presentation", Title: "Presentation", Description: "Pick the vehicle, trail and scene", Component: "scene-picker"},
		{ID: "review", Title: "Review", Description: "Review and publish the game definition", Component: "review-screen"},
	}
}

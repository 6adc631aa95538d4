package wizard

import (
	"net/url"
	"strconv"
)

// Deep-link query parameter names. These are read once at mount and are
// the mechanism by which a hard fallback re-enters the workflow at the
// correct position after a full reload.
const (
	ParamStep     = "step"
	ParamForce    = "force"
	ParamGame     = "game"
	ParamTemplate = "template"
)

// DeepLink is the addressable entry point into the wizard: a target step,
// an optional force flag bypassing soft verification, the session to load,
// and an optional preset to seed a brand-new session with.
//
// A Step of -1 means "no target step"; use ParseDeepLink or NewDeepLink
// rather than the zero value, which targets step 0.
type DeepLink struct {
	Step     int
	Force    bool
	Game     string
	Template string
}

// NewDeepLink returns a DeepLink with no target step.
func NewDeepLink() DeepLink {
	return DeepLink{Step: -1}
}

// ParseDeepLink reads the wizard parameters out of a query string.
// Malformed or missing step values resolve to -1 (no target).
func ParseDeepLink(query url.Values) DeepLink {
	link := NewDeepLink()

	if raw := query.Get(ParamStep); raw != "" {
		if step, err := strconv.Atoi(raw); err == nil && step >= 0 {
			link.Step = step
		}
	}
	if raw := query.Get(ParamForce); raw != "" {
		force, err := strconv.ParseBool(raw)
		link.Force = err == nil && force
	}
	link.Game = query.Get(ParamGame)
	link.Template = query.Get(ParamTemplate)

	return link
}

// HasStep reports whether the link carries a target step.
func (d DeepLink) HasStep() bool {
	return d.Step >= 0
}

// Values encodes the link as query parameters, omitting unset fields.
func (d DeepLink) Values() url.Values {
	values := url.Values{}
	if d.HasStep() {
		values.Set(ParamStep, strconv.Itoa(d.Step))
	}
	if d.Force {
		values.Set(ParamForce, "true")
	}
	if d.Game != "" {
		values.Set(ParamGame, d.Game)
	}
	if d.Template != "" {
		values.Set(ParamTemplate, d.Template)
	}
	return values
}

// Encode returns the canonical query-string form, e.g.
// "force=true&game=game_1700000000000&step=4". Empty for a link with no
// fields set (the safe default location).
func (d DeepLink) Encode() string {
	return d.Values().Encode()
}

package wizard

import (
	"errors"
	"time"

	"github.com/dshills/gamewizard-go/wizard/emit"
)

// Option configures a Controller at construction time.
type Option func(*Controller) error

// WithRegistry replaces the default step schema registry.
func WithRegistry(registry *Registry) Option {
	return func(c *Controller) error {
		if registry == nil {
			return errors.New("registry cannot be nil")
		}
		c.registry = registry
		return nil
	}
}

// WithEmitter sets the observability event receiver.
func WithEmitter(emitter emit.Emitter) Option {
	return func(c *Controller) error {
		if emitter == nil {
			return errors.New("emitter cannot be nil")
		}
		c.emitter = emitter
		return nil
	}
}

// WithMetrics attaches Prometheus metrics collection.
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(c *Controller) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

// WithAutosave attaches a draft autosave notifier. The controller notifies
// it with a config snapshot after every settled transition and update.
func WithAutosave(notifier DraftNotifier) Option {
	return func(c *Controller) error {
		if notifier == nil {
			return errors.New("autosave notifier cannot be nil")
		}
		c.autosave = notifier
		return nil
	}
}

// WithReload sets the hard-fallback hook invoked with the reload deep link
// when a transition cannot be corrected. In the web shell this triggers a
// full navigation; tests capture the link.
func WithReload(reload func(DeepLink)) Option {
	return func(c *Controller) error {
		if reload == nil {
			return errors.New("reload hook cannot be nil")
		}
		c.reload = reload
		return nil
	}
}

// WithClock overrides the controller's time source. Useful in tests for
// deterministic session ids.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}

package wizard

import (
	"encoding/json"
	"fmt"
)

// Config is the shared game definition document assembled by the wizard.
//
// It is a deeply-nested, schema-loose record. Step editors read arbitrary
// sub-trees and write back only via merge; wholesale replacement is never
// performed, so one writer cannot erase another's contribution.
//
// The "workflow" sub-tree is reserved and owned by the Controller; editors
// must not write it directly (Controller.ApplyUpdate strips it from
// patches).
type Config map[string]interface{}

// Reserved and well-known config keys.
const (
	// KeyCategory is the discriminator field driving variant selection.
	KeyCategory = "category"

	// KeySessionID mirrors the owning session id into the config so the
	// identity resolver can recover it from the shared document.
	KeySessionID = "gameId"

	// KeyWorkflow is the reserved sub-tree mirroring the controller's
	// workflow state for persistence: {currentStep, totalSteps, progress,
	// completedSteps}.
	KeyWorkflow = "workflow"

	// KeyGameName and KeyDescription feed the draft autosave payload.
	KeyGameName    = "gameName"
	KeyDescription = "description"
)

// Keys inside the reserved workflow sub-tree.
const (
	keyCurrentStep    = "currentStep"
	keyTotalSteps     = "totalSteps"
	keyProgress       = "progress"
	keyCompletedSteps = "completedSteps"
)

// Clone creates a deep copy of the config using JSON round-trip
// serialization. Values must be JSON-serializable, which holds for
// everything step editors produce.
func (c Config) Clone() (Config, error) {
	if c == nil {
		return Config{}, nil
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	var copied Config
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return copied, nil
}

// Merge applies patch to the config in place: a shallow merge at the top
// level and a recursive merge wherever both sides hold a nested object.
// Keys absent from the patch are never dropped or nulled.
func (c Config) Merge(patch Config) {
	mergeMaps(c, patch)
}

func mergeMaps(dst, src map[string]interface{}) {
	for key, value := range src {
		srcMap, srcIsMap := asMap(value)
		dstMap, dstIsMap := asMap(dst[key])

		if srcIsMap && dstIsMap {
			mergeMaps(dstMap, srcMap)
			continue
		}

		dst[key] = value
	}
}

// asMap normalizes the two map shapes a Config can hold: typed Config
// values set in code and map[string]interface{} values produced by JSON
// decoding.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Config:
		return m, true
	default:
		return nil, false
	}
}

// String returns the top-level string value for key, or "" when the key is
// absent or not a string.
func (c Config) String(key string) string {
	if c == nil {
		return ""
	}
	s, _ := c[key].(string)
	return s
}

// Sub returns the nested object under key, or nil when absent.
func (c Config) Sub(key string) map[string]interface{} {
	if c == nil {
		return nil
	}
	m, _ := asMap(c[key])
	return m
}

// intFrom coerces the numeric shapes a config value can take after JSON
// round-trips (float64) or direct assignment (int, int64).
func intFrom(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// storedStepPointer reads the externally-visible step pointer out of a
// persisted config document. ok is false when no workflow sub-tree has been
// mirrored yet.
func storedStepPointer(config map[string]interface{}) (int, bool) {
	wf, isMap := asMap(config[KeyWorkflow])
	if !isMap {
		return 0, false
	}
	return intFrom(wf[keyCurrentStep])
}

// Package wizard provides the workflow orchestration layer for the game
// configuration wizard: variant-dependent step schemas, a serialized
// workflow controller, navigation recovery, session identity and
// validation, and deep-link addressing.
package wizard

import (
	"errors"
	"fmt"
)

// ErrNotStarted is returned by transition methods before Start has
// completed. Transitions require a mounted session.
var ErrNotStarted = errors.New("controller not started")

// ErrInvalidSession indicates that a resolved session id has no persisted
// data and could not be corrected. The caller should redirect to the safe
// default location carried alongside this error.
var ErrInvalidSession = errors.New("session has no persisted data")

// DesyncError describes a post-transition verification mismatch: the local
// index or the persisted step pointer does not match the expected
// post-transition value.
//
// Desyncs are recovered silently by a corrective rewrite; this type exists
// for diagnostics (event metadata and logs), it is never returned from
// transition methods.
type DesyncError struct {
	Kind     TransitionKind
	Expected int
	Local    int
	Stored   int
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("navigation desync on %s: expected step %d, local %d, stored %d",
		e.Kind, e.Expected, e.Local, e.Stored)
}

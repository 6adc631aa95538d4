package wizard

import "math"

// Progress computes the completion percentage for a step position.
//
// Pure and deterministic. Defined at both boundaries: Progress(0, total)
// is 0 and Progress(total-1, total) is 100. A single-step workflow is
// always 100.
func Progress(index, total int) int {
	if total <= 1 {
		return 100
	}
	return int(math.Round(float64(index) / float64(total-1) * 100))
}

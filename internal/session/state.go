// Package session implements the tailoring session state machine: the
// single-writer unit of work that takes a submission through fetching,
// parsing, optimization and scoring, with cooperative cancellation and
// user-initiated retry.
package session

// State is a tailoring session's lifecycle phase.
type State string

const (
	// StateIdle exists only before a submission; it is never stored.
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateFetching   State = "fetching"
	StateParsing    State = "parsing"
	StateOptimizing State = "optimizing"
	StateScoring    State = "scoring"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transitions are possible, except
// Failed → Validating via Retry.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// progressFor is the fixed monotonic schedule. Progress is a projection of
// state, never a free-running animation.
func progressFor(s State) int {
	switch s {
	case StateValidating:
		return 5
	case StateFetching:
		return 20
	case StateParsing:
		return 40
	case StateOptimizing:
		return 60
	case StateScoring:
		return 95
	case StateSucceeded, StateFailed, StateCancelled:
		return 100
	default:
		return 0
	}
}

// statusMessageFor returns the phase label shown in the processing screen.
func statusMessageFor(s State) string {
	switch s {
	case StateValidating:
		return "Analyzing job description..."
	case StateFetching:
		return "Extracting key requirements..."
	case StateParsing:
		return "Matching skills to job description..."
	case StateOptimizing:
		return "Optimizing resume content..."
	case StateScoring:
		return "Formatting for ATS readability..."
	case StateSucceeded:
		return "Resume tailoring complete!"
	case StateFailed:
		return "Resume tailoring failed"
	case StateCancelled:
		return "Resume tailoring cancelled"
	default:
		return ""
	}
}

// Screen identifies which UI screen corresponds to a session state. The
// shell-only screens (landing, auth, dashboard) never derive from a session.
type Screen string

const (
	ScreenUpload     Screen = "upload"
	ScreenProcessing Screen = "processing"
	ScreenPreview    Screen = "preview"
)

// ScreenFor maps a session state to its screen. It is a pure projection so
// the screen can never fall out of sync with the session.
func ScreenFor(s State) Screen {
	switch s {
	case StateSucceeded:
		return ScreenPreview
	case StateIdle, StateFailed, StateCancelled:
		return ScreenUpload
	default:
		return ScreenProcessing
	}
}

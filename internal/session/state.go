package session

import "time"

// State is one step of the request lifecycle. Transitions run strictly
// forward within a request; any state may move to StateFailed.
type State string

const (
	StateValidating       State = "validating"
	StateResolvingProject State = "resolving_project"
	StateGenerating       State = "generating"
	StateRecording        State = "recording"
	StatePublishing       State = "publishing"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Session is the diagnostic record of one generation request, mirrored into
// Redis by the tracker. It has no authority over request flow.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id,omitempty"`
	State     State     `json:"state"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

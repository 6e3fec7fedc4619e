package pipeline

// State is a step of a pipeline run.
type State string

const (
	StateReceived   State = "received"
	StateRejected   State = "rejected"
	StateFetched    State = "fetched"
	StateTranscoded State = "transcoded"
	StateProbed     State = "probed"
	StateRecognized State = "recognized"
	StateChunked    State = "chunked"
	StateFailed     State = "failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateChunked, StateFailed:
		return true
	}
	return false
}

func (s State) String() string { return string(s) }

// Transition is reported to observers after every state change.
type Transition struct {
	RunID     string
	MessageID string
	From      State
	To        State
	Err       error
}

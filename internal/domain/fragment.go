package domain

// Fragment is one unit of a streamed answer.
type Fragment struct {
	Type      FragmentType `json:"type"`
	Content   string       `json:"content,omitempty"`
	SessionID string       `json:"session_id"`
}

// FragmentSink receives fragments in order. A Send error means the consumer
// is gone and the producer must stop.
type FragmentSink interface {
	Send(f Fragment) error
}

// SinkFunc adapts a function to FragmentSink.
type SinkFunc func(f Fragment) error

func (fn SinkFunc) Send(f Fragment) error {
	return fn(f)
}

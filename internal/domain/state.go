package domain

type ListenerState int

const (
	StateIdle ListenerState = iota
	StateListening
	StatePaused
	StateStopped
)

func (s ListenerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

package domain

type EventKind string

const (
	EventHotword EventKind = "hotword"
	EventSound   EventKind = "sound"
	EventSilence EventKind = "silence"
	EventError   EventKind = "error"
)

// EngineFaultMessage is the message carried by every detector fault.
const EngineFaultMessage = "hotword detection engine fault"

// Event is one of HotwordEvent, SoundEvent, SilenceEvent or ErrorEvent.
type Event interface {
	Kind() EventKind
	event()
}

type HotwordEvent struct {
	Index   int
	Hotword string
	Buffer  []byte
}

type SoundEvent struct {
	Buffer []byte
}

type SilenceEvent struct{}

type ErrorEvent struct {
	Message string
	Err     error
}

func (HotwordEvent) Kind() EventKind { return EventHotword }
func (SoundEvent) Kind() EventKind   { return EventSound }
func (SilenceEvent) Kind() EventKind { return EventSilence }
func (ErrorEvent) Kind() EventKind   { return EventError }

func (HotwordEvent) event() {}
func (SoundEvent) event()   {}
func (SilenceEvent) event() {}
func (ErrorEvent) event()   {}

func (e ErrorEvent) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e ErrorEvent) Unwrap() error { return e.Err }

package strategy

type State string

type Event string

const (
	StateIdle      State = "IDLE"
	StateSelecting State = "SELECTING"
	StateQuoting   State = "QUOTING"
	StateSizing    State = "SIZING"
	StateOpening   State = "OPENING"
	StateHolding   State = "HOLDING"
	StateClosing   State = "CLOSING"
	StateFailed    State = "FAILED"
)

const (
	EventStart      Event = "START"
	EventSelected   Event = "SELECTED"
	EventQuoted     Event = "QUOTED"
	EventSized      Event = "SIZED"
	EventOpened     Event = "OPENED"
	EventHeld       Event = "HELD"
	EventClosed     Event = "CLOSED"
	EventFail       Event = "FAIL"
	EventCompensate Event = "COMPENSATE"
)

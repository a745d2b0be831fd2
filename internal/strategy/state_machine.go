package strategy

import "sync"

type StateMachine struct {
	mu    sync.Mutex
	State State
}

func NewStateMachine() *StateMachine {
	return &StateMachine{State: StateIdle}
}

// Apply moves to the next state for event. Events that are not valid in the
// current state leave it unchanged.
func (s *StateMachine) Apply(event Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = nextState(s.State, event)
	return s.State
}

func (s *StateMachine) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func (s *StateMachine) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = StateIdle
}

func nextState(current State, event Event) State {
	switch current {
	case StateIdle:
		if event == EventStart {
			return StateSelecting
		}
	case StateSelecting:
		if event == EventSelected {
			return StateQuoting
		}
	case StateQuoting:
		if event == EventQuoted {
			return StateSizing
		}
		if event == EventFail {
			return StateFailed
		}
	case StateSizing:
		if event == EventSized {
			return StateOpening
		}
		if event == EventFail {
			return StateFailed
		}
	case StateOpening:
		if event == EventOpened {
			return StateHolding
		}
		if event == EventFail {
			return StateFailed
		}
	case StateHolding:
		if event == EventHeld {
			return StateClosing
		}
	case StateFailed:
		if event == EventCompensate {
			return StateClosing
		}
	case StateClosing:
		if event == EventClosed {
			return StateIdle
		}
	}
	return current
}

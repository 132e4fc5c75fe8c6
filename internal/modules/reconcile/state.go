package reconcile

import "fmt"

// State tags one step of the register-or-recover machine. Identity
// creation and profile projection are two non-atomic remote writes, so a
// half-completed signup is a normal state of the world; the machine makes
// every repair branch explicit instead of burying it in error handling.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateCreating
	StateCreated
	StateConflictDetected
	StateRecoveringLogin
	StateBanCheck
	StateRestored
	StateDenied
	StateIncorrectCredential
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateCreating:
		return "creating"
	case StateCreated:
		return "created"
	case StateConflictDetected:
		return "conflict_detected"
	case StateRecoveringLogin:
		return "recovering_login"
	case StateBanCheck:
		return "ban_check"
	case StateRestored:
		return "restored"
	case StateDenied:
		return "denied"
	case StateIncorrectCredential:
		return "incorrect_credential"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the machine stops in s.
func (s State) Terminal() bool {
	switch s {
	case StateCreated, StateRestored, StateDenied, StateIncorrectCredential, StateFailed:
		return true
	}
	return false
}

// Event is an observed outcome of the current step.
type Event int

const (
	EventSubmit Event = iota
	EventValid
	EventInvalid
	EventCreateOK
	EventCreateConflict
	EventCreateError
	EventRecover
	EventLoginOK
	EventLoginBadCredential
	EventLoginError
	EventBanned
	EventNotBanned
	EventBanCheckError
)

// Next is the pure transition function. It returns an error on any
// transition the machine does not define, which in the service is a
// programming bug, never an input condition.
func Next(s State, ev Event) (State, error) {
	switch s {
	case StateIdle:
		if ev == EventSubmit {
			return StateValidating, nil
		}
	case StateValidating:
		switch ev {
		case EventValid:
			return StateCreating, nil
		case EventInvalid:
			return StateFailed, nil
		}
	case StateCreating:
		switch ev {
		case EventCreateOK:
			return StateCreated, nil
		case EventCreateConflict:
			return StateConflictDetected, nil
		case EventCreateError:
			return StateFailed, nil
		}
	case StateConflictDetected:
		if ev == EventRecover {
			return StateRecoveringLogin, nil
		}
	case StateRecoveringLogin:
		switch ev {
		case EventLoginOK:
			return StateBanCheck, nil
		case EventLoginBadCredential:
			return StateIncorrectCredential, nil
		case EventLoginError:
			return StateFailed, nil
		}
	case StateBanCheck:
		switch ev {
		case EventBanned:
			return StateDenied, nil
		case EventNotBanned:
			return StateRestored, nil
		case EventBanCheckError:
			return StateFailed, nil
		}
	}
	return s, fmt.Errorf("reconcile: no transition from %s on event %d", s, ev)
}

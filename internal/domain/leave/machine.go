package leave

// Pending is the only state with outgoing transitions.
var transitions = map[Status][]Status{
	StatusPending: {StatusApproved, StatusRejected, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns ErrInvalidTransition unless from -> to is allowed.
func Transition(from, to Status) error {
	if !from.CanTransition(to) {
		return ErrInvalidTransition
	}
	return nil
}

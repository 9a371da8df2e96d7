package recruitment

// Hired is only reachable through Hire, so it never appears as a target here.
var transitions = map[Status][]Status{
	StatusPending:     {StatusUnderReview, StatusRejected},
	StatusUnderReview: {StatusShortlisted, StatusRejected},
	StatusShortlisted: {StatusInterview, StatusRejected},
	StatusInterview:   {StatusRejected},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusShortlisted, StatusInterview, StatusHired, StatusRejected:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusHired || s == StatusRejected
}

// CanTransition reports whether HR may move an application from s to next.
// Staying in the same non-terminal status is allowed and only updates notes.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) CanHire() bool {
	return s.Valid() && !s.Terminal()
}

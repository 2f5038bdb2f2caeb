package domain

// bookingTransitions lists every allowed (from -> to) pair.
//
// Booking status graph:
//
//	scheduled ──► confirmed ──► pending_feedback ──► completed
//	    │             │                │
//	    │             │                ├──► no_show
//	    │             │                └──► resolved
//	    ├──► cancelled│
//	    └─────────────┴──► lapsed ──► {scheduled, completed, cancelled, no_show, resolved}
//
// completed, resolved, cancelled and no_show are terminal. Both the
// time-driven sweep and the candidate-status cascade go through
// TransitionAllowed, so the two drivers cannot disagree on legality.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingScheduled:       {BookingConfirmed, BookingPendingFeedback, BookingLapsed, BookingCancelled, BookingResolved},
	BookingConfirmed:       {BookingPendingFeedback, BookingLapsed, BookingCancelled, BookingResolved},
	BookingPendingFeedback: {BookingCompleted, BookingNoShow, BookingResolved},
	// lapsed re-enters scheduled on manual reschedule
	BookingLapsed: {BookingScheduled, BookingCompleted, BookingCancelled, BookingNoShow, BookingResolved},
}

// TransitionAllowed reports whether moving from -> to is legal.
// A self-transition is not legal here; callers treat it as a no-op
// before consulting the table.
func TransitionAllowed(from, to BookingStatus) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status has no outgoing transitions.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

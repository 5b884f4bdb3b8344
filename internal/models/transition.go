package models

// statusTransitions is the single source of truth for legal status moves.
// Every mutator consults this table; the returnStatus coupling below is the
// only other way status changes.
var statusTransitions = map[PostStatus]map[PostStatus]bool{
	StatusPending: {
		StatusApproved: true,
		StatusRejected: true,
	},
	StatusApproved: {
		StatusCompleted: true,
	},
	StatusCompleted: {
		StatusApproved: true,
	},
	StatusRejected: {
		StatusApproved: true,
	},
}

// CanTransition reports whether moving from one status to another is legal.
// A self-transition is always allowed (idempotent no-op).
func CanTransition(from, to PostStatus) bool {
	if from == to {
		return true
	}
	return statusTransitions[from][to]
}

// StatusForReturn derives the post status implied by a return status.
// returned means the item is back with its owner (completed); not_found
// means the owner was never located and the report stays publicly visible
// (approved).
func StatusForReturn(rs ReturnStatus) (PostStatus, error) {
	switch rs {
	case Returned:
		return StatusCompleted, nil
	case ReturnNotFound:
		return StatusApproved, nil
	default:
		return "", NewValidationError("return status must be 'returned' or 'not_found'")
	}
}

// ApplyReturnStatus sets both coupled fields on the post in one step so the
// pair can be written with a single atomic update.
func ApplyReturnStatus(p *Post, rs ReturnStatus) error {
	status, err := StatusForReturn(rs)
	if err != nil {
		return err
	}
	p.ReturnStatus = rs
	p.Status = status
	return nil
}

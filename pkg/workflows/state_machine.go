package workflows

// Project lifecycle statuses.
//
//	open ──► shortlisting ──► submission ──► completed
//	  │           │               │
//	  └───────────┴───────────────┴──► cancelled
//
// completed and cancelled are terminal.
const (
	StatusOpen         = "open"
	StatusShortlisting = "shortlisting"
	StatusSubmission   = "submission"
	StatusCompleted    = "completed"
	StatusCancelled    = "cancelled"
)

// StateMachine enforces project status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a new state machine with allowed transitions
func NewStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			StatusOpen:         {StatusShortlisting, StatusCancelled},
			StatusShortlisting: {StatusSubmission, StatusCancelled},
			StatusSubmission:   {StatusCompleted, StatusCancelled},
			StatusCompleted:    {},
			StatusCancelled:    {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}

// IsKnown reports whether status is one of the lifecycle statuses.
func (sm *StateMachine) IsKnown(status string) bool {
	_, ok := sm.allowedTransitions[status]
	return ok
}

// IsTerminal reports whether no transition leaves status.
func (sm *StateMachine) IsTerminal(status string) bool {
	allowed, ok := sm.allowedTransitions[status]
	return ok && len(allowed) == 0
}

package models

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusNoShow     Status = "no_show"
	StatusCancelled  Status = "cancelled"
)

var statusPriority = map[Status]int{
	StatusWaiting:    0,
	StatusInProgress: 1,
	StatusCompleted:  2,
	StatusNoShow:     3,
	StatusCancelled:  4,
}

func (s Status) Valid() bool {
	_, ok := statusPriority[s]
	return ok
}

// Priority is the primary sort key for the visible queue. Unknown
// statuses sort last.
func (s Status) Priority() int {
	priority, ok := statusPriority[s]
	if !ok {
		return len(statusPriority)
	}
	return priority
}

var transitionMap = map[Status][]Status{
	StatusWaiting:    {StatusInProgress, StatusNoShow, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

// ValidTransition reports whether a status change is allowed.
// Completed, no-show, and cancelled entries are terminal.
func ValidTransition(from, to Status) bool {
	allowed, ok := transitionMap[from]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}

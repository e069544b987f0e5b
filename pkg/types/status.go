package types

// Status is shared by needs and offers.
type Status string

const (
	StatusActive    Status = "active"
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
)

var statusOrder = map[Status]int{
	StatusActive:    0,
	StatusAssigned:  1,
	StatusCompleted: 2,
}

// CanMoveTo reports whether s -> next is a forward transition.
func (s Status) CanMoveTo(next Status) bool {
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	if !ok {
		return false
	}
	return to > from
}

type AssignmentStatus string

const (
	AssignmentProposed  AssignmentStatus = "proposed"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentCompleted AssignmentStatus = "completed"
)

// LiveAssignmentStatuses are the statuses that block a second assignment
// for the same need or offer.
var LiveAssignmentStatuses = []AssignmentStatus{AssignmentProposed, AssignmentAccepted}

func (s AssignmentStatus) Live() bool {
	return s == AssignmentProposed || s == AssignmentAccepted
}

type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

var urgencyRank = map[Urgency]int{
	UrgencyCritical: 1,
	UrgencyHigh:     2,
	UrgencyMedium:   3,
	UrgencyLow:      4,
}

// Rank orders urgencies by severity, critical first. Unknown values sort last.
func (u Urgency) Rank() int {
	if r, ok := urgencyRank[u]; ok {
		return r
	}
	return len(urgencyRank) + 1
}

type UrgencyLevel struct {
	Code Urgency `db:"code" json:"code"`
	Name string  `db:"name" json:"name"`
	Rank int     `db:"rank" json:"rank"`
}

type Proximity string

const (
	ProximityNearby  Proximity = "nearby"
	ProximityRelated Proximity = "related"
)

// AcceptMode selects how a one-sided acceptance of a need is resolved.
type AcceptMode string

const (
	AcceptModeAutoMatch  AcceptMode = "auto_match"
	AcceptModeSynthesize AcceptMode = "synthesize"
)

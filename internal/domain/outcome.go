package domain

// Outcome is the result of resolving a confirmation token.
type Outcome int

const (
	OutcomeNoSuchToken Outcome = iota
	OutcomeAssignedPrimary
	OutcomeAssignedSecondary
	OutcomeLocationFull
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoSuchToken:
		return "no_such_token"
	case OutcomeAssignedPrimary:
		return "assigned_primary"
	case OutcomeAssignedSecondary:
		return "assigned_secondary"
	case OutcomeLocationFull:
		return "location_full"
	default:
		return "unknown"
	}
}

// Assigned reports whether the outcome put the registrant into a slot.
func (o Outcome) Assigned() bool {
	return o == OutcomeAssignedPrimary || o == OutcomeAssignedSecondary
}

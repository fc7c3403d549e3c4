package domain

// SLA labels as produced by the ticket_sla_status view.
const (
	SLALabelOnTime  = "A tiempo"
	SLALabelAtRisk  = "En riesgo"
	SLALabelOverdue = "Atrasado"
)

// SLAStatus is one row of the SLA view.
type SLAStatus struct {
	TicketID       string
	Status         string
	ElapsedMinutes int64
	WarningMinutes int64
	BreachMinutes  int64
}

// SLAState is the classification shown for a ticket.
type SLAState string

const (
	SLAStateOnTime  SLAState = "on_time"
	SLAStateAtRisk  SLAState = "at_risk"
	SLAStateOverdue SLAState = "overdue"
	SLAStateNone    SLAState = "none"
)

// SLATone is the badge color class.
type SLATone string

const (
	SLATonePositive SLATone = "positive"
	SLAToneWarning  SLATone = "warning"
	SLAToneNegative SLATone = "negative"
	SLAToneNeutral  SLATone = "neutral"
)

// SLABadge is the display mapping of an SLA status.
type SLABadge struct {
	State SLAState `json:"state"`
	Tone  SLATone  `json:"tone"`
	Label string   `json:"label"`
}

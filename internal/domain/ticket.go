package domain

import (
	"strings"
	"time"
)

// Stage is the workflow state of a ticket.
type Stage string

const (
	StageNew               Stage = "new"
	StageAssigned          Stage = "assigned"
	StageInProgress        Stage = "in_progress"
	StagePendingDev        Stage = "pending_dev"
	StagePendingSales      Stage = "pending_sales"
	StagePendingClient     Stage = "pending_client"
	StageTesting           Stage = "testing"
	StagePendingValidation Stage = "pending_validation"
	StageDone              Stage = "done"
	StagePaused            Stage = "paused"
	StageCancelled         Stage = "cancelled"
)

// Stages lists every stage in board display order. Order carries no transition meaning.
var Stages = []Stage{
	StageNew,
	StageAssigned,
	StageInProgress,
	StagePendingDev,
	StagePendingSales,
	StagePendingClient,
	StageTesting,
	StagePendingValidation,
	StageDone,
	StagePaused,
	StageCancelled,
}

// ClosedStages are the archived stages.
var ClosedStages = []Stage{StageDone, StageCancelled, StagePaused}

// IsValid reports whether s is one of the known stages.
func (s Stage) IsValid() bool {
	return s.DisplayIndex() >= 0
}

// IsClosed reports whether s is an archived stage.
func (s Stage) IsClosed() bool {
	for _, closed := range ClosedStages {
		if s == closed {
			return true
		}
	}
	return false
}

// DisplayIndex returns the board position of s, or -1 when unknown.
func (s Stage) DisplayIndex() int {
	for i, stage := range Stages {
		if s == stage {
			return i
		}
	}
	return -1
}

// Priority enumerates ticket urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                     string
	Reference              int64
	ExternalRef            *string
	ExternalSource         *string
	ExternalURL            *string
	Title                  string
	Description            string
	Stage                  Stage
	Priority               Priority
	AssignedTo             *string
	CreatedBy              *string
	CreatedByEmail         *string
	UpdatedBy              *string
	EntityID               *string
	Category               *string
	Application            *string
	Classification         *string
	Channel                *string
	Type                   *string
	PendingValidationSince *time.Time
	LastClientActivityAt   *time.Time
	Solution               *string
	ClosedAt               *time.Time
	ReopenedFromTicketID   *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsExternal reports whether the ticket is mirrored from an external system.
func (t *Ticket) IsExternal() bool {
	return t.ExternalRef != nil && *t.ExternalRef != ""
}

// RequestedBy reports whether email belongs to the ticket's original requester.
func (t *Ticket) RequestedBy(email string) bool {
	if t.CreatedByEmail == nil {
		return false
	}
	email = strings.TrimSpace(email)
	return email != "" && strings.EqualFold(strings.TrimSpace(*t.CreatedByEmail), email)
}

package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestTicketPatchAssignments(t *testing.T) {
	stage := domain.StagePendingValidation
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	patch := TicketPatch{
		Stage:                  &stage,
		AssignedTo:             SetNull[string](),
		Solution:               SetValue("restarted the service"),
		PendingValidationSince: SetValue(since),
	}

	sets, args := patch.assignments()

	assert.Equal(t, []string{
		"stage=$1",
		"assigned_to=$2",
		"solution=$3",
		"pending_validation_since=$4",
		"updated_at=NOW()",
	}, sets)
	assert.Len(t, args, 4)
	assert.Equal(t, domain.StagePendingValidation, args[0])
	assert.Nil(t, args[1])
	assert.Equal(t, "restarted the service", *(args[2].(*string)))
	assert.Equal(t, since, *(args[3].(*time.Time)))
}

func TestEmptyTicketPatchOnlyTouchesTimestamp(t *testing.T) {
	sets, args := TicketPatch{}.assignments()
	assert.Equal(t, []string{"updated_at=NOW()"}, sets)
	assert.Empty(t, args)
}

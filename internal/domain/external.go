package domain

import "strings"

// ExternalSourceMojito identifies tickets mirrored from Mojito360.
const ExternalSourceMojito = "mojito360"

// Mojito360 ticket statuses.
const (
	MojitoStatusCreated         = "created"
	MojitoStatusAssigned        = "asigned"
	MojitoStatusInfoPending     = "infoPending"
	MojitoStatusApprovalPending = "approvalPending"
	MojitoStatusPaused          = "paused"
	MojitoStatusCancelled       = "cancelled"
	MojitoStatusCompleted       = "completed"
)

var inboundStatus = map[string]Stage{
	MojitoStatusCreated:         StageNew,
	MojitoStatusAssigned:        StageAssigned,
	MojitoStatusInfoPending:     StagePendingClient,
	MojitoStatusApprovalPending: StagePendingValidation,
	MojitoStatusPaused:          StagePaused,
	MojitoStatusCancelled:       StageCancelled,
	MojitoStatusCompleted:       StageDone,
}

// StageFromExternalStatus maps a Mojito360 status to a local stage.
// Unknown statuses map to StageNew.
func StageFromExternalStatus(status string) Stage {
	if stage, ok := inboundStatus[strings.TrimSpace(status)]; ok {
		return stage
	}
	return StageNew
}

// ExternalStatusFromStage maps a local stage back to the closest Mojito360 status.
// Stages with no external counterpart are treated as assigned work.
func ExternalStatusFromStage(stage Stage) string {
	switch stage {
	case StageNew:
		return MojitoStatusCreated
	case StagePendingClient:
		return MojitoStatusInfoPending
	case StagePendingValidation:
		return MojitoStatusApprovalPending
	case StagePaused:
		return MojitoStatusPaused
	case StageCancelled:
		return MojitoStatusCancelled
	case StageDone:
		return MojitoStatusCompleted
	default:
		return MojitoStatusAssigned
	}
}

package domain

import "time"

// StageHistoryEntry is one segment of the append-only stage ledger.
// EndedAt is nil while the segment is still active.
type StageHistoryEntry struct {
	ID              string
	TicketID        string
	Stage           Stage
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationSeconds *int64
	IsPaused        bool
}

// IsOpen reports whether the segment is the currently active one.
func (e StageHistoryEntry) IsOpen() bool {
	return e.EndedAt == nil
}

// StageTotal is the accumulated time spent in one stage.
type StageTotal struct {
	Stage   Stage `json:"stage"`
	Seconds int64 `json:"seconds"`
}

// StageSegment is a ledger entry with its effective duration resolved.
type StageSegment struct {
	Stage     Stage      `json:"stage"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Seconds   int64      `json:"seconds"`
	IsPaused  bool       `json:"is_paused"`
	IsOpen    bool       `json:"is_open"`
}

// StageHistorySummary aggregates a ticket's ledger for display.
type StageHistorySummary struct {
	TotalActiveSeconds int64          `json:"total_active_seconds"`
	TotalPausedSeconds int64          `json:"total_paused_seconds"`
	ByStage            []StageTotal   `json:"by_stage"`
	Segments           []StageSegment `json:"segments"`
	ComputedAt         time.Time      `json:"computed_at"`
}

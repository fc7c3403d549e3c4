package service

import (
	"sort"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SummarizeStageHistory aggregates a ticket's stage ledger at instant now.
//
// A segment lasts duration_seconds when set, otherwise now - started_at clamped
// at zero. Paused segments count toward TotalPausedSeconds only. ByStage is
// sorted by descending time, ties broken by display order.
func SummarizeStageHistory(entries []domain.StageHistoryEntry, now time.Time) domain.StageHistorySummary {
	summary := domain.StageHistorySummary{
		ByStage:    []domain.StageTotal{},
		Segments:   make([]domain.StageSegment, 0, len(entries)),
		ComputedAt: now,
	}

	perStage := map[domain.Stage]int64{}
	for _, entry := range entries {
		seconds := effectiveSeconds(entry, now)
		if entry.IsPaused {
			summary.TotalPausedSeconds += seconds
		} else {
			summary.TotalActiveSeconds += seconds
		}
		perStage[entry.Stage] += seconds
		summary.Segments = append(summary.Segments, domain.StageSegment{
			Stage:     entry.Stage,
			StartedAt: entry.StartedAt,
			EndedAt:   entry.EndedAt,
			Seconds:   seconds,
			IsPaused:  entry.IsPaused,
			IsOpen:    entry.IsOpen(),
		})
	}

	for stage, seconds := range perStage {
		summary.ByStage = append(summary.ByStage, domain.StageTotal{Stage: stage, Seconds: seconds})
	}
	sort.Slice(summary.ByStage, func(i, j int) bool {
		a, b := summary.ByStage[i], summary.ByStage[j]
		if a.Seconds != b.Seconds {
			return a.Seconds > b.Seconds
		}
		return a.Stage.DisplayIndex() < b.Stage.DisplayIndex()
	})
	return summary
}

func effectiveSeconds(entry domain.StageHistoryEntry, now time.Time) int64 {
	if entry.DurationSeconds != nil {
		return *entry.DurationSeconds
	}
	seconds := int64(now.Sub(entry.StartedAt) / time.Second)
	if seconds < 0 {
		return 0
	}
	return seconds
}

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func seconds(v int64) *int64 { return &v }

func TestSummarizeStageHistoryTotals(t *testing.T) {
	created := testNow.Add(-10 * time.Hour)
	at := func(h int) time.Time { return created.Add(time.Duration(h) * time.Hour) }
	ended := func(h int) *time.Time { v := at(h); return &v }

	entries := []domain.StageHistoryEntry{
		{Stage: domain.StageNew, StartedAt: at(0), EndedAt: ended(1), DurationSeconds: seconds(3600)},
		{Stage: domain.StageInProgress, StartedAt: at(1), EndedAt: ended(4), DurationSeconds: seconds(3 * 3600)},
		{Stage: domain.StagePaused, StartedAt: at(4), EndedAt: ended(6), DurationSeconds: seconds(2 * 3600), IsPaused: true},
		{Stage: domain.StageInProgress, StartedAt: at(6)},
	}

	summary := SummarizeStageHistory(entries, testNow)

	assert.Equal(t, int64(8*3600), summary.TotalActiveSeconds)
	assert.Equal(t, int64(2*3600), summary.TotalPausedSeconds)
	assert.Equal(t, int64(10*3600), summary.TotalActiveSeconds+summary.TotalPausedSeconds)

	require.Len(t, summary.ByStage, 3)
	assert.Equal(t, domain.StageTotal{Stage: domain.StageInProgress, Seconds: 7 * 3600}, summary.ByStage[0])
	assert.Equal(t, domain.StageTotal{Stage: domain.StagePaused, Seconds: 2 * 3600}, summary.ByStage[1])
	assert.Equal(t, domain.StageTotal{Stage: domain.StageNew, Seconds: 3600}, summary.ByStage[2])

	open := summary.Segments[3]
	assert.True(t, open.IsOpen)
	assert.Equal(t, int64(4*3600), open.Seconds)
}

func TestSummarizeStageHistoryTiesFollowBoardOrder(t *testing.T) {
	entries := []domain.StageHistoryEntry{
		{Stage: domain.StageTesting, StartedAt: testNow, DurationSeconds: seconds(60)},
		{Stage: domain.StageAssigned, StartedAt: testNow, DurationSeconds: seconds(60)},
	}

	summary := SummarizeStageHistory(entries, testNow)

	require.Len(t, summary.ByStage, 2)
	assert.Equal(t, domain.StageAssigned, summary.ByStage[0].Stage)
	assert.Equal(t, domain.StageTesting, summary.ByStage[1].Stage)
}

func TestSummarizeStageHistoryClampsFutureStart(t *testing.T) {
	entries := []domain.StageHistoryEntry{{Stage: domain.StageNew, StartedAt: testNow.Add(time.Minute)}}

	summary := SummarizeStageHistory(entries, testNow)

	assert.Equal(t, int64(0), summary.TotalActiveSeconds)
	assert.Equal(t, int64(0), summary.Segments[0].Seconds)
}

func TestSummarizeStageHistoryEmpty(t *testing.T) {
	summary := SummarizeStageHistory(nil, testNow)

	assert.NotNil(t, summary.ByStage)
	assert.Empty(t, summary.Segments)
	assert.Zero(t, summary.TotalActiveSeconds)
}

package attendance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pipecast/backend/internal/models"
)

func entry(stage models.AttendanceStage, email string, registeredAt time.Time) PipelineEntry {
	return PipelineEntry{
		AttendanceID: uuid.New(),
		AttendeeID:   uuid.New(),
		Email:        email,
		FullName:     email,
		Stage:        stage,
		CallStatus:   models.CallPending,
		RegisteredAt: registeredAt,
	}
}

func TestGroupByStageAlwaysHasSixStages(t *testing.T) {
	groups := GroupByStage(nil, nil)
	require.Len(t, groups, 6)
	for i, g := range groups {
		require.Equal(t, models.PipelineStages[i], g.Stage)
		require.Zero(t, g.Count)
		require.NotNil(t, g.Attendees, "empty stage must serialize as [], not null")
		require.Empty(t, g.Attendees)
		require.NotNil(t, g.Tags)
	}
}

func TestGroupByStageBucketsAndCounts(t *testing.T) {
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	entries := []PipelineEntry{
		entry(models.StageRegistered, "a@example.com", base),
		entry(models.StageAttended, "b@example.com", base.Add(time.Minute)),
		entry(models.StageRegistered, "c@example.com", base.Add(2*time.Minute)),
		entry(models.StageConverted, "d@example.com", base.Add(3*time.Minute)),
	}
	tags := []string{"launch", "q2"}

	groups := GroupByStage(entries, tags)
	require.Len(t, groups, 6)

	byStage := make(map[models.AttendanceStage]StageGroup, len(groups))
	for _, g := range groups {
		byStage[g.Stage] = g
		require.Equal(t, tags, g.Tags)
		require.Equal(t, len(g.Attendees), g.Count)
	}

	require.Equal(t, 2, byStage[models.StageRegistered].Count)
	require.Equal(t, 1, byStage[models.StageAttended].Count)
	require.Equal(t, 1, byStage[models.StageConverted].Count)
	require.Zero(t, byStage[models.StageAddedToCart].Count)
	require.Zero(t, byStage[models.StageFollowUp].Count)
	require.Zero(t, byStage[models.StageBreakoutRoom].Count)

	// Input order survives within a group.
	registered := byStage[models.StageRegistered].Attendees
	require.Equal(t, "a@example.com", registered[0].Email)
	require.Equal(t, "c@example.com", registered[1].Email)
}

func TestStageRank(t *testing.T) {
	require.Equal(t, 0, models.StageRank(models.StageRegistered))
	require.Equal(t, 5, models.StageRank(models.StageConverted))
	require.Equal(t, -1, models.StageRank(models.AttendanceStage("ghosted")))
	for i := 1; i < len(models.PipelineStages); i++ {
		require.Greater(t,
			models.StageRank(models.PipelineStages[i]),
			models.StageRank(models.PipelineStages[i-1]))
	}
}

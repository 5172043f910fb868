package attendance

import (
	"github.com/pipecast/backend/internal/models"
)

// StageGroup is one pipeline column: a stage, its attendees in registration
// order, and the webinar tags the presenter segments by.
type StageGroup struct {
	Stage     models.AttendanceStage `json:"stage"`
	Count     int                    `json:"count"`
	Tags      []string               `json:"tags"`
	Attendees []PipelineEntry        `json:"attendees"`
}

// GroupByStage buckets pipeline entries into the six funnel stages. Every
// stage is present in the output even when empty, in funnel order, and
// entries keep their input (registration) order within a group.
func GroupByStage(entries []PipelineEntry, tags []string) []StageGroup {
	if tags == nil {
		tags = []string{}
	}
	byStage := make(map[models.AttendanceStage][]PipelineEntry, len(models.PipelineStages))
	for _, e := range entries {
		byStage[e.Stage] = append(byStage[e.Stage], e)
	}

	groups := make([]StageGroup, 0, len(models.PipelineStages))
	for _, stage := range models.PipelineStages {
		bucket := byStage[stage]
		if bucket == nil {
			bucket = []PipelineEntry{}
		}
		groups = append(groups, StageGroup{
			Stage:     stage,
			Count:     len(bucket),
			Tags:      tags,
			Attendees: bucket,
		})
	}
	return groups
}

package enrich

import (
	"strings"

	"chronicle/internal/trip"
	"chronicle/internal/voiceref"
)

// PlannedClip describes what a run would do with one clip. It backs the dry
// run report.
type PlannedClip struct {
	ClipID          string
	AudioPath       string
	AudioErr        error
	Travelers       int
	Location        string
	StoryBeat       string
	StoryBeatMissed bool
	VoiceReferences []string
}

// Plan inspects every clip without calling any analyzer.
func Plan(doc *trip.Document, refs *voiceref.Set) []PlannedClip {
	if doc == nil {
		return nil
	}
	names := refs.Names()
	plans := make([]PlannedClip, 0, len(doc.Clips))
	for _, clip := range doc.Clips {
		plan := PlannedClip{
			ClipID:          clip.ID,
			Travelers:       len(doc.Trip.Travelers),
			Location:        clip.PlaceName(),
			VoiceReferences: names,
		}
		plan.AudioPath, plan.AudioErr = checkAudio(doc, clip)
		if id, linked := clip.LinkedStoryBeatID(); linked {
			if beat, ok := doc.StoryBeat(id); ok {
				plan.StoryBeat = beat.Text
			} else {
				plan.StoryBeatMissed = true
				plan.StoryBeat = id
			}
		} else {
			plan.StoryBeat = strings.TrimSpace(clip.StoryBeatContext)
		}
		plans = append(plans, plan)
	}
	return plans
}

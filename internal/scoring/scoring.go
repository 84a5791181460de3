// Package scoring turns emotion annotations into comparable numbers.
//
// An annotation contributes intensity * type weight * state weight, where the
// state weight favours feelings reported after an activity:
//
//	BEFORE 0.2, DURING 0.3, AFTER 0.5
//
// An event's score is the sum over its annotations and an activity's total is
// the sum over its events. Inputs are assumed validated upstream.
package scoring

import (
	"sort"

	"what-to-do/internal/model"
)

var stateWeights = map[model.EmotionState]float64{
	model.StateBefore: 0.2,
	model.StateDuring: 0.3,
	model.StateAfter:  0.5,
}

// StateWeight returns the salience weight of a lifecycle state; unknown
// states weigh nothing.
func StateWeight(s model.EmotionState) float64 { return stateWeights[s] }

// Contribution needs a.Emotion.Type loaded.
func Contribution(a model.EmotionAnnotation) float64 {
	return float64(a.Intensity) * float64(a.Emotion.Type.Weight) * StateWeight(a.State)
}

// EventScore sums the contributions of the event's annotations. No
// annotations yields 0.
func EventScore(e model.ActivityEvent) float64 {
	var total float64
	for _, a := range e.Annotations {
		total += Contribution(a)
	}
	return total
}

// ActivityTotal sums the scores of the events of one activity.
func ActivityTotal(events []model.ActivityEvent) float64 {
	var total float64
	for _, e := range events {
		total += EventScore(e)
	}
	return total
}

type ActivityScore struct {
	Activity model.Activity `json:"activity"`
	Total    float64        `json:"total_score"`
}

// Rank orders activities by descending total. Equal totals fall back to
// ascending activity id so the order is reproducible.
func Rank(scores []ActivityScore) []ActivityScore {
	out := make([]ActivityScore, len(scores))
	copy(out, scores)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Activity.ID < out[j].Activity.ID
	})
	return out
}

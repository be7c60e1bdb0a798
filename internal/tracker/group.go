// Package tracker turns a workout's flat list of sets into editable logical
// rows and reconciles edited rows back into set create/update/delete calls.
package tracker

import (
	"strconv"

	"github.com/claude/futurecoach/internal/models"
)

// Group is a run of sets sharing exercise, reps and weight.
type Group struct {
	Key      string   `json:"key"`
	Exercise string   `json:"exercise"`
	Reps     int      `json:"reps"`
	Weight   *float64 `json:"weight"`
	IDs      []int    `json:"ids"`
}

// Count is the number of member sets.
func (g Group) Count() int { return len(g.IDs) }

// GroupKey is "exercise|reps|weight" with the weight in shortest decimal form
// and empty when absent. The key is not escaped, so an exercise name
// containing "|" can collide with another group.
func GroupKey(exercise string, reps int, weight *float64) string {
	return exercise + "|" + strconv.Itoa(reps) + "|" + formatWeight(weight)
}

func formatWeight(w *float64) string {
	if w == nil {
		return ""
	}
	return strconv.FormatFloat(*w, 'f', -1, 64)
}

// GroupSets groups sets by key. Groups appear in first-seen order and member
// ids keep input order.
func GroupSets(sets []models.Set) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, s := range sets {
		key := GroupKey(s.Exercise, s.Reps, s.Weight)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{
				Key:      key,
				Exercise: s.Exercise,
				Reps:     s.Reps,
				Weight:   copyWeight(s.Weight),
			})
		}
		groups[i].IDs = append(groups[i].IDs, s.ID)
	}
	return groups
}

func copyWeight(w *float64) *float64 {
	if w == nil {
		return nil
	}
	v := *w
	return &v
}

func sameWeight(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

package booking

import (
	"fmt"
	"sort"
	"time"

	"github.com/mnoushir/site-assistant/internal/backend"
)

// GroupSlotsByDay buckets slots by the local calendar day of their start
// time. Day order follows first occurrence in the input; slots within a day
// are sorted ascending by start.
func GroupSlotsByDay(slots []backend.Slot, dayLayout, timeLayout string, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}

	var groups []DayGroup
	index := make(map[string]int)

	for _, slot := range slots {
		start := slot.Start.In(loc)
		day := start.Format(dayLayout)

		display := DisplaySlot{
			Slot:  slot,
			Label: fmt.Sprintf("%s - %s", start.Format(timeLayout), slot.End.In(loc).Format(timeLayout)),
		}

		i, ok := index[day]
		if !ok {
			index[day] = len(groups)
			groups = append(groups, DayGroup{Day: day})
			i = len(groups) - 1
		}
		groups[i].Slots = append(groups[i].Slots, display)
	}

	for i := range groups {
		slots := groups[i].Slots
		sort.SliceStable(slots, func(a, b int) bool {
			return slots[a].Start.Before(slots[b].Start)
		})
	}

	return groups
}

package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnoushir/site-assistant/internal/backend"
)

const (
	testDayLayout  = "Monday, January 2, 2006"
	testTimeLayout = "3:04 PM"
)

func slotAt(t *testing.T, start string, minutes int) backend.Slot {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	return backend.Slot{Start: s, End: s.Add(time.Duration(minutes) * time.Minute)}
}

func TestGroupSlotsByDay(t *testing.T) {
	slots := []backend.Slot{
		slotAt(t, "2026-09-01T09:00:00Z", 30),
		slotAt(t, "2026-09-01T10:00:00Z", 30),
		slotAt(t, "2026-09-02T09:00:00Z", 30),
	}

	groups := GroupSlotsByDay(slots, testDayLayout, testTimeLayout, time.UTC)

	require.Len(t, groups, 2)
	assert.Equal(t, "Tuesday, September 1, 2026", groups[0].Day)
	assert.Equal(t, "Wednesday, September 2, 2026", groups[1].Day)

	require.Len(t, groups[0].Slots, 2)
	assert.Equal(t, "9:00 AM - 9:30 AM", groups[0].Slots[0].Label)
	assert.Equal(t, "10:00 AM - 10:30 AM", groups[0].Slots[1].Label)

	require.Len(t, groups[1].Slots, 1)
	assert.Equal(t, "9:00 AM - 9:30 AM", groups[1].Slots[0].Label)
}

func TestGroupSlotsByDaySortsWithinDay(t *testing.T) {
	slots := []backend.Slot{
		slotAt(t, "2026-09-01T14:00:00Z", 30),
		slotAt(t, "2026-09-01T09:00:00Z", 30),
		slotAt(t, "2026-09-01T11:30:00Z", 30),
	}

	groups := GroupSlotsByDay(slots, testDayLayout, testTimeLayout, time.UTC)

	require.Len(t, groups, 1)
	require.Len(t, groups[0].Slots, 3)
	for i := 1; i < len(groups[0].Slots); i++ {
		assert.True(t, groups[0].Slots[i-1].Start.Before(groups[0].Slots[i].Start))
	}
}

func TestGroupSlotsByDayLocalizesDayBoundary(t *testing.T) {
	// 23:30 UTC falls on the next calendar day one hour east
	loc := time.FixedZone("UTC+1", 3600)
	slots := []backend.Slot{
		slotAt(t, "2026-09-01T23:30:00Z", 30),
	}

	groups := GroupSlotsByDay(slots, testDayLayout, testTimeLayout, loc)

	require.Len(t, groups, 1)
	assert.Equal(t, "Wednesday, September 2, 2026", groups[0].Day)
	assert.Equal(t, "12:30 AM - 1:00 AM", groups[0].Slots[0].Label)
}

func TestGroupSlotsByDayEmpty(t *testing.T) {
	groups := GroupSlotsByDay(nil, testDayLayout, testTimeLayout, time.UTC)
	assert.Empty(t, groups)
}

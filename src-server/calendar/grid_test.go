package calendar_test

import (
	"testing"
	"time"

	"evcal/src-server/calendar"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return tm
}

func scenario(t *testing.T) ([]calendar.Venue, []calendar.Event) {
	venues := []calendar.Venue{
		{ID: "v1", Name: "Hall A"},
		{ID: "v2", Name: "Hall B"},
	}
	events := []calendar.Event{
		{ID: "e1", Title: "Evening", StartsAt: mustTime(t, "2026-03-05T18:00:00Z"), VenueID: "v1"},
		{ID: "e2", Title: "Morning", StartsAt: mustTime(t, "2026-03-05T09:00:00Z"), VenueID: "v2"},
	}
	return venues, events
}

func dayCell(t *testing.T, grid calendar.Grid, month time.Month, day int) calendar.DayCell {
	t.Helper()
	m := grid.Months[month-1]
	if m.Number != month {
		t.Fatalf("month %d at index %d", m.Number, month-1)
	}
	return m.Days[day-1]
}

func TestAssignColors(t *testing.T) {
	venues := make([]calendar.Venue, 0, 10)
	for i := 0; i < 10; i++ {
		venues = append(venues, calendar.Venue{ID: string(rune('a' + i))})
	}
	colors := calendar.AssignColors(venues)
	if len(colors) != 10 {
		t.Fatalf("expected 10 colors, got %d", len(colors))
	}
	if colors["a"] != calendar.Palette[0] || colors["i"] != calendar.Palette[0] || colors["j"] != calendar.Palette[1] {
		t.Errorf("palette does not cycle by index: %v", colors)
	}

	again := calendar.AssignColors(venues)
	for id, color := range colors {
		if again[id] != color {
			t.Errorf("venue %s: %s then %s", id, color, again[id])
		}
	}

	reversed := []calendar.Venue{venues[1], venues[0]}
	swapped := calendar.AssignColors(reversed)
	if swapped["b"] != calendar.Palette[0] || swapped["a"] != calendar.Palette[1] {
		t.Errorf("reordering should follow index: %v", swapped)
	}

	if got := calendar.AssignColors(nil); len(got) != 0 {
		t.Errorf("empty venue list should give empty map, got %v", got)
	}
	if got := colors.ColorOf(""); got != calendar.FallbackColor {
		t.Errorf("venue-less color = %s", got)
	}
	if got := colors.ColorOf("missing"); got != calendar.FallbackColor {
		t.Errorf("unknown venue color = %s", got)
	}
}

func TestBuildIndexUsesViewerZone(t *testing.T) {
	sofia, err := time.LoadLocation("Europe/Sofia")
	if err != nil {
		t.Skip("tzdata unavailable:", err)
	}
	// 22:30 UTC on Mar 4 is 00:30 on Mar 5 in Sofia.
	event := calendar.Event{ID: "late", StartsAt: mustTime(t, "2026-03-04T22:30:00Z")}

	index := calendar.BuildIndex([]calendar.Event{event, event}, sofia)
	if got := len(index.On("2026-03-05")); got != 2 {
		t.Errorf("expected duplicate kept under local date, got %d", got)
	}
	if got := index.On("2026-03-04"); got != nil {
		t.Errorf("UTC date must not be used, got %v", got)
	}

	utcIndex := calendar.BuildIndex([]calendar.Event{event}, time.UTC)
	if len(utcIndex.On("2026-03-04")) != 1 {
		t.Error("UTC viewer should see Mar 4")
	}
}

func TestBuildIndexKeepsInputOrder(t *testing.T) {
	_, events := scenario(t)
	index := calendar.BuildIndex(events, time.UTC)
	day := index.On("2026-03-05")
	if len(day) != 2 || day[0].ID != "e1" || day[1].ID != "e2" {
		t.Errorf("unexpected day list %v", day)
	}
}

func TestRenderGridScenario(t *testing.T) {
	venues, events := scenario(t)
	colors := calendar.AssignColors(venues)
	index := calendar.BuildIndex(events, time.UTC)

	grid := calendar.RenderGrid(2026, index, colors, calendar.NewVenueSet("v1", "v2"))
	if len(grid.Months) != 12 {
		t.Fatalf("expected 12 months, got %d", len(grid.Months))
	}
	if grid.Weekdays[0] != "Mon" || grid.Weekdays[6] != "Sun" {
		t.Errorf("weekday header = %v", grid.Weekdays)
	}

	cell := dayCell(t, grid, time.March, 5)
	if !cell.Interactive || cell.DateKey != "2026-03-05" {
		t.Errorf("March 5 should be interactive: %+v", cell)
	}
	if len(cell.Indicators) != 2 || cell.Overflow != 0 {
		t.Errorf("expected 2 dots, no overflow: %+v", cell)
	}
	if cell.AriaLabel != "5 - 2 events" {
		t.Errorf("aria label = %q", cell.AriaLabel)
	}

	filtered := calendar.RenderGrid(2026, index, colors, calendar.NewVenueSet("v1"))
	cell = dayCell(t, filtered, time.March, 5)
	if cell.EventCount != 1 || len(cell.Indicators) != 1 || cell.Indicators[0] != colors["v1"] {
		t.Errorf("only e1 should remain: %+v", cell)
	}

	plain := dayCell(t, grid, time.March, 6)
	if plain.Interactive || len(plain.Indicators) != 0 {
		t.Errorf("March 6 has no events: %+v", plain)
	}
}

func TestRenderGridGeometry(t *testing.T) {
	grid := calendar.RenderGrid(2026, calendar.EventsByDate{}, calendar.VenueColorMap{}, calendar.NewVenueSet())
	tests := []struct {
		month  time.Month
		blanks int
		days   int
	}{
		{time.January, 3, 31},  // Thursday
		{time.February, 6, 28}, // Sunday
		{time.June, 0, 30},     // Monday
	}
	for _, tt := range tests {
		m := grid.Months[tt.month-1]
		if m.LeadingBlanks != tt.blanks {
			t.Errorf("%s: blanks = %d, want %d", tt.month, m.LeadingBlanks, tt.blanks)
		}
		if len(m.Days) != tt.days {
			t.Errorf("%s: days = %d, want %d", tt.month, len(m.Days), tt.days)
		}
	}

	leap := calendar.RenderGrid(2028, calendar.EventsByDate{}, calendar.VenueColorMap{}, calendar.NewVenueSet())
	if got := len(leap.Months[1].Days); got != 29 {
		t.Errorf("February 2028 has %d days", got)
	}
}

func TestRenderGridOverflowCountsVenues(t *testing.T) {
	venues := []calendar.Venue{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}
	at := mustTime(t, "2026-07-01T12:00:00Z")
	events := []calendar.Event{
		{ID: "1", StartsAt: at, VenueID: "a"},
		{ID: "2", StartsAt: at, VenueID: "a"},
		{ID: "3", StartsAt: at, VenueID: "b"},
		{ID: "4", StartsAt: at, VenueID: "c"},
		{ID: "5", StartsAt: at, VenueID: "d"},
		{ID: "6", StartsAt: at, VenueID: "e"},
		{ID: "7", StartsAt: at},
	}
	colors := calendar.AssignColors(venues)
	index := calendar.BuildIndex(events, time.UTC)

	all := calendar.NewVenueSet("a", "b", "c", "d", "e")
	cell := dayCell(t, calendar.RenderGrid(2026, index, colors, all), time.July, 1)
	if cell.EventCount != 7 {
		t.Errorf("event count = %d", cell.EventCount)
	}
	if cell.Overflow != 2 {
		t.Errorf("overflow = %d, want 2 (5 venues - 3)", cell.Overflow)
	}
	want := []string{colors["a"], colors["b"], colors["c"]}
	for i, color := range want {
		if cell.Indicators[i] != color {
			t.Errorf("indicator %d = %s, want %s", i, cell.Indicators[i], color)
		}
	}

	// Venue-less events are never filtered out.
	none := dayCell(t, calendar.RenderGrid(2026, index, colors, calendar.NewVenueSet()), time.July, 1)
	if !none.Interactive || none.EventCount != 1 || len(none.Indicators) != 0 || none.Overflow != 0 {
		t.Errorf("venue-less event should remain: %+v", none)
	}
}

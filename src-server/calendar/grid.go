package calendar

import (
	"fmt"
	"time"
)

// Weekdays is the fixed Monday-first header row.
var Weekdays = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// MaxIndicators is how many distinct venue dots a day cell shows.
const MaxIndicators = 3

type DayCell struct {
	Day         int      `json:"day"`
	DateKey     string   `json:"dateKey"`
	Interactive bool     `json:"interactive"`
	EventCount  int      `json:"eventCount"`
	Indicators  []string `json:"indicators,omitempty"`
	Overflow    int      `json:"overflow,omitempty"`
	AriaLabel   string   `json:"ariaLabel,omitempty"`
}

type Month struct {
	Name          string     `json:"name"`
	Number        time.Month `json:"number"`
	Year          int        `json:"year"`
	LeadingBlanks int        `json:"leadingBlanks"`
	Days          []DayCell  `json:"days"`
}

type Grid struct {
	Year     int      `json:"year"`
	Weekdays []string `json:"weekdays"`
	Months   []Month  `json:"months"`
}

// RenderGrid computes the 12-month view model for year.
func RenderGrid(year int, index EventsByDate, colors VenueColorMap, selected VenueSet) Grid {
	grid := Grid{
		Year:     year,
		Weekdays: Weekdays[:],
		Months:   make([]Month, 0, 12),
	}
	for month := time.January; month <= time.December; month++ {
		grid.Months = append(grid.Months, renderMonth(year, month, index, colors, selected))
	}
	return grid
}

func renderMonth(year int, month time.Month, index EventsByDate, colors VenueColorMap, selected VenueSet) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := daysIn(year, month)
	out := Month{
		Name:          month.String(),
		Number:        month,
		Year:          year,
		LeadingBlanks: mondayOffset(first.Weekday()),
		Days:          make([]DayCell, 0, days),
	}
	for day := 1; day <= days; day++ {
		key := DayKey(year, month, day)
		filtered := FilterEvents(index.On(key), selected)
		out.Days = append(out.Days, renderDay(day, key, filtered, colors))
	}
	return out
}

func renderDay(day int, key string, events []Event, colors VenueColorMap) DayCell {
	cell := DayCell{Day: day, DateKey: key, EventCount: len(events)}
	if len(events) == 0 {
		return cell
	}
	cell.Interactive = true

	venues := VenueIDsWithEvents(events)
	shown := venues
	if len(shown) > MaxIndicators {
		shown = shown[:MaxIndicators]
		cell.Overflow = len(venues) - MaxIndicators
	}
	cell.Indicators = make([]string, 0, len(shown))
	for _, id := range shown {
		cell.Indicators = append(cell.Indicators, colors.ColorOf(id))
	}

	suffix := "s"
	if len(events) == 1 {
		suffix = ""
	}
	cell.AriaLabel = fmt.Sprintf("%d - %d event%s", day, len(events), suffix)
	return cell
}

// mondayOffset maps Sunday-first weekdays to a Monday-first column index.
func mondayOffset(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

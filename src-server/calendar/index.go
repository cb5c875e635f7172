package calendar

import (
	"fmt"
	"time"
)

const dateKeyLayout = "2006-01-02"

// DateKey is the YYYY-MM-DD wall-clock date of t in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dateKeyLayout)
}

// DayKey formats a civil date the same way DateKey does.
func DayKey(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// EventsByDate maps a day key to the events starting that day, in input order.
type EventsByDate map[string][]Event

// BuildIndex groups events by their local start date. Duplicates are kept.
func BuildIndex(events []Event, loc *time.Location) EventsByDate {
	index := make(EventsByDate)
	for _, event := range events {
		key := DateKey(event.StartsAt, loc)
		index[key] = append(index[key], event)
	}
	return index
}

func (idx EventsByDate) On(key string) []Event {
	return idx[key]
}

// VenueIDsWithEvents returns the distinct non-empty venue ids, first-seen order.
func VenueIDsWithEvents(events []Event) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, event := range events {
		if event.VenueID == "" {
			continue
		}
		if _, ok := seen[event.VenueID]; ok {
			continue
		}
		seen[event.VenueID] = struct{}{}
		ids = append(ids, event.VenueID)
	}
	return ids
}

// Package calendar holds the yearly calendar core: venue colors, the
// date index, the 12-month grid, the venue filter with its persisted
// preference, the hover tooltip state machine and the page that wires
// them together. Nothing in here paints HTML or talks to a database;
// collaborators come in through DataSource, Storage and Scheduler.
package calendar

import "time"

type Venue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is read-only to the core. VenueID is empty for venue-less events.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	VenueID     string    `json:"venue_id,omitempty"`
	Venue       *Venue    `json:"venue,omitempty"`
}

// VenueName returns the embedded venue name or "No venue".
func (e Event) VenueName() string {
	if e.Venue == nil || e.Venue.Name == "" {
		return "No venue"
	}
	return e.Venue.Name
}

func venueIDs(venues []Venue) []string {
	ids := make([]string, 0, len(venues))
	for _, venue := range venues {
		ids = append(ids, venue.ID)
	}
	return ids
}

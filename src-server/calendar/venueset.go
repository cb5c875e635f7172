package calendar

import "sort"

// VenueSet is the set of selected venue ids.
type VenueSet map[string]struct{}

func NewVenueSet(ids ...string) VenueSet {
	set := make(VenueSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s VenueSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s VenueSet) Add(id string) { s[id] = struct{}{} }
func (s VenueSet) Remove(id string) { delete(s, id) }

// IDs returns the members sorted, so persisted output is stable.
func (s VenueSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s VenueSet) Clone() VenueSet {
	clone := make(VenueSet, len(s))
	for id := range s {
		clone[id] = struct{}{}
	}
	return clone
}

func (s VenueSet) Equal(other VenueSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// FilterEvents keeps events without a venue and events whose venue is selected.
func FilterEvents(events []Event, selected VenueSet) []Event {
	filtered := make([]Event, 0, len(events))
	for _, event := range events {
		if event.VenueID == "" || selected.Has(event.VenueID) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

package calendar

// Palette is cycled through in venue list order.
var Palette = [...]string{
	"#3b82f6", // blue
	"#10b981", // green
	"#f59e0b", // amber
	"#ef4444", // red
	"#8b5cf6", // purple
	"#ec4899", // pink
	"#14b8a6", // teal
	"#f97316", // orange
}

// FallbackColor is used for venue-less events and unknown venue ids.
const FallbackColor = "#6c757d"

// VenueColorMap maps venue id to a palette color.
type VenueColorMap map[string]string

// AssignColors builds a fresh map: the venue at index i gets Palette[i%len(Palette)].
func AssignColors(venues []Venue) VenueColorMap {
	colors := make(VenueColorMap, len(venues))
	for i, venue := range venues {
		colors[venue.ID] = Palette[i%len(Palette)]
	}
	return colors
}

// ColorOf returns the venue color, or FallbackColor when venueID is empty or unknown.
func (m VenueColorMap) ColorOf(venueID string) string {
	if venueID == "" {
		return FallbackColor
	}
	if color, ok := m[venueID]; ok {
		return color
	}
	return FallbackColor
}

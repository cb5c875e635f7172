package calendar

import "context"

// Repaint tells the painter which regions changed.
type Repaint uint8

const (
	RepaintStatus Repaint = 1 << iota
	RepaintLegend
	RepaintGrid
	RepaintTooltip
)

func (r Repaint) Has(part Repaint) bool { return r&part != 0 }

const (
	labelSelectAll   = "Select All"
	labelUnselectAll = "Unselect All"
)

type LegendRow struct {
	VenueID string `json:"venueId"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Checked bool   `json:"checked"`
}

type Legend struct {
	Empty       bool        `json:"empty"`
	ToggleLabel string      `json:"toggleLabel"`
	Rows        []LegendRow `json:"rows"`
}

// Filter owns the selected venue set. Every mutation is persisted.
type Filter struct {
	venues   []Venue
	colors   VenueColorMap
	selected VenueSet
	prefs    *PreferenceStore
}

func NewFilter(venues []Venue, colors VenueColorMap, selected VenueSet, prefs *PreferenceStore) *Filter {
	if selected == nil {
		selected = NewVenueSet()
	}
	return &Filter{
		venues:   venues,
		colors:   colors,
		selected: selected,
		prefs:    prefs,
	}
}

// Selected returns a copy of the current selection.
func (f *Filter) Selected() VenueSet { return f.selected.Clone() }

// AllSelected reports whether every known venue is selected.
func (f *Filter) AllSelected() bool {
	for _, venue := range f.venues {
		if !f.selected.Has(venue.ID) {
			return false
		}
	}
	return true
}

func (f *Filter) known(id string) bool {
	for _, venue := range f.venues {
		if venue.ID == id {
			return true
		}
	}
	return false
}

// Toggle sets a single venue on or off. Only the grid needs repainting.
func (f *Filter) Toggle(ctx context.Context, venueID string, on bool) Repaint {
	if !f.known(venueID) {
		return 0
	}
	if on {
		f.selected.Add(venueID)
	} else {
		f.selected.Remove(venueID)
	}
	f.prefs.Save(ctx, f.selected)
	return RepaintGrid
}

// ToggleAll clears the selection when everything is selected, otherwise
// selects every known venue. The toggle label changes, so the legend repaints too.
func (f *Filter) ToggleAll(ctx context.Context) Repaint {
	if f.AllSelected() {
		f.selected = NewVenueSet()
	} else {
		f.selected = NewVenueSet(venueIDs(f.venues)...)
	}
	f.prefs.Save(ctx, f.selected)
	return RepaintLegend | RepaintGrid
}

func (f *Filter) Legend() Legend {
	legend := Legend{
		Empty:       len(f.venues) == 0,
		ToggleLabel: labelSelectAll,
		Rows:        make([]LegendRow, 0, len(f.venues)),
	}
	if f.AllSelected() {
		legend.ToggleLabel = labelUnselectAll
	}
	for _, venue := range f.venues {
		legend.Rows = append(legend.Rows, LegendRow{
			VenueID: venue.ID,
			Name:    venue.Name,
			Color:   f.colors.ColorOf(venue.ID),
			Checked: f.selected.Has(venue.ID),
		})
	}
	return legend
}

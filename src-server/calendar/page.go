package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// LoadErrorMessage is the single message shown when a load fails.
const LoadErrorMessage = "Failed to load calendar data. Please try again."

var (
	ErrVenuesFetch = errors.New("failed to load venues")
	ErrEventsFetch = errors.New("failed to load events")
)

// DataSource is the backend the page reads from.
type DataSource interface {
	FetchVenues(ctx context.Context) ([]Venue, error)
	// FetchPublishedEventsInRange returns published events with start in [start, end).
	FetchPublishedEventsInRange(ctx context.Context, start, end time.Time) ([]Event, error)
}

type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Hooks observe the page for metrics. All fields are optional.
type Hooks struct {
	OnLoad              func(year int, took time.Duration, err error)
	OnStaleLoad         func(year int)
	OnPreferenceSaveErr func(err error)
}

type PageConfig struct {
	Source   DataSource
	Storage  Storage
	Location *time.Location
	// Link builds the event detail URL shown in the tooltip.
	Link func(eventID string) string
	// Scheduler and Post are required for SelectYear and the tooltip;
	// synchronous Load works without them.
	Scheduler Scheduler
	Post      func(func())
	// Repaint is called for changes that happen outside a direct call:
	// async load completion and debounced tooltip hides.
	Repaint func(Repaint)
	Now     func() time.Time
	Hooks   Hooks
}

// View is everything a painter needs for a full render.
type View struct {
	Year        int             `json:"year"`
	YearOptions []int           `json:"yearOptions"`
	Status      Status          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Legend      *Legend         `json:"legend,omitempty"`
	Grid        *Grid           `json:"grid,omitempty"`
	Tooltip     TooltipState    `json:"tooltip"`
	Content     *TooltipContent `json:"content,omitempty"`
}

// LoadResult is one joined fetch, tagged with the year it was requested for.
type LoadResult struct {
	Year   int
	Venues []Venue
	Events []Event
	Err    error
	Took   time.Duration
}

// Page is the calendar orchestrator. Like Tooltip it must be driven from a
// single goroutine; background fetches hand results back through Post.
type Page struct {
	cfg   PageConfig
	loc   *time.Location
	prefs *PreferenceStore

	year    int
	status  Status
	venues  []Venue
	events  []Event
	colors  VenueColorMap
	index   EventsByDate
	filter  *Filter
	tooltip *Tooltip
}

func NewPage(cfg PageConfig) *Page {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	p := &Page{
		cfg:    cfg,
		loc:    cfg.Location,
		prefs:  NewPreferenceStore(cfg.Storage),
		year:   cfg.Now().In(cfg.Location).Year(),
		status: StatusLoading,
		colors: VenueColorMap{},
		index:  EventsByDate{},
	}
	p.prefs.OnSaveError = cfg.Hooks.OnPreferenceSaveErr
	p.filter = NewFilter(nil, p.colors, nil, p.prefs)
	p.tooltip = NewTooltip(cfg.Scheduler, p.filteredOn, func() { p.repaint(RepaintTooltip) })
	return p
}

// YearOptions is the selectable range: previous year through two years ahead.
func YearOptions(now time.Time) []int {
	current := now.Year()
	years := make([]int, 0, 4)
	for year := current - 1; year <= current+2; year++ {
		years = append(years, year)
	}
	return years
}

// YearRange is [Jan 1 year, Jan 1 year+1) in loc.
func YearRange(year int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(1, 0, 0)
}

// Fetch loads venues and events concurrently. Both must succeed.
func Fetch(ctx context.Context, src DataSource, year int, loc *time.Location) LoadResult {
	started := time.Now()
	res := LoadResult{Year: year}
	start, end := YearRange(year, loc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		venues, err := src.FetchVenues(gctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrVenuesFetch, err)
		}
		res.Venues = venues
		return nil
	})
	g.Go(func() error {
		events, err := src.FetchPublishedEventsInRange(gctx, start, end)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEventsFetch, err)
		}
		res.Events = events
		return nil
	})
	res.Err = g.Wait()
	res.Took = time.Since(started)
	return res
}

func (p *Page) Year() int { return p.year }
func (p *Page) Status() Status { return p.status }
func (p *Page) Location() *time.Location { return p.loc }
func (p *Page) Filter() *Filter { return p.filter }
func (p *Page) Tooltip() *Tooltip { return p.tooltip }

// Load fetches year synchronously and applies it. Used for one-shot renders.
func (p *Page) Load(ctx context.Context, year int) error {
	p.begin(year)
	res := Fetch(ctx, p.cfg.Source, year, p.loc)
	p.Apply(ctx, res)
	return res.Err
}

// SelectYear makes year current and fetches it in the background. The
// result is applied on the owner's loop via Post.
func (p *Page) SelectYear(ctx context.Context, year int) {
	p.begin(year)
	p.repaint(RepaintStatus | RepaintTooltip)
	go func() {
		res := Fetch(ctx, p.cfg.Source, year, p.loc)
		p.cfg.Post(func() {
			if p.Apply(ctx, res) {
				p.repaint(RepaintStatus | RepaintLegend | RepaintGrid)
			}
		})
	}()
}

func (p *Page) begin(year int) {
	p.year = year
	p.status = StatusLoading
	p.tooltip.Hide()
}

// Apply installs a completed load. It returns false when the load was
// requested for a year that is no longer current.
func (p *Page) Apply(ctx context.Context, res LoadResult) bool {
	if res.Year != p.year {
		slog.Debug("discarding stale calendar load", "loaded", res.Year, "current", p.year)
		if p.cfg.Hooks.OnStaleLoad != nil {
			p.cfg.Hooks.OnStaleLoad(res.Year)
		}
		return false
	}
	if p.cfg.Hooks.OnLoad != nil {
		p.cfg.Hooks.OnLoad(res.Year, res.Took, res.Err)
	}
	if res.Err != nil {
		slog.Error("can't load calendar", "year", res.Year, "error", res.Err)
		p.status = StatusFailed
		return true
	}

	p.venues = res.Venues
	p.events = res.Events
	p.colors = AssignColors(res.Venues)
	p.index = BuildIndex(res.Events, p.loc)
	known := NewVenueSet(venueIDs(res.Venues)...)
	withEvents := make([]string, 0)
	for _, id := range VenueIDsWithEvents(res.Events) {
		// events can reference a venue the venue list no longer has
		if known.Has(id) {
			withEvents = append(withEvents, id)
		}
	}
	selected := p.prefs.Load(ctx, venueIDs(res.Venues), withEvents)
	p.filter = NewFilter(res.Venues, p.colors, selected, p.prefs)
	p.status = StatusReady
	return true
}

func (p *Page) filteredOn(dateKey string) []Event {
	return FilterEvents(p.index.On(dateKey), p.filter.selected)
}

// FilteredEvents returns every loaded event that passes the venue filter.
func (p *Page) FilteredEvents() []Event {
	return FilterEvents(p.events, p.filter.selected)
}

func (p *Page) ToggleVenue(ctx context.Context, venueID string, on bool) Repaint {
	if p.status != StatusReady {
		return 0
	}
	return p.filter.Toggle(ctx, venueID, on) | p.dropOrphanTooltip()
}

func (p *Page) ToggleAllVenues(ctx context.Context) Repaint {
	if p.status != StatusReady {
		return 0
	}
	return p.filter.ToggleAll(ctx) | p.dropOrphanTooltip()
}

// dropOrphanTooltip hides the tooltip if its day lost all filtered events.
func (p *Page) dropOrphanTooltip() Repaint {
	state := p.tooltip.State()
	if state.Visible && len(p.filteredOn(state.AnchorDateKey)) == 0 {
		p.tooltip.Hide()
		return RepaintTooltip
	}
	if state.Visible {
		return RepaintTooltip
	}
	return 0
}

// TooltipContent builds the content for the current anchor, nil when hidden.
func (p *Page) TooltipContent() *TooltipContent {
	state := p.tooltip.State()
	if !state.Visible {
		return nil
	}
	content := BuildTooltipContent(state.AnchorDateKey, p.filteredOn(state.AnchorDateKey), p.colors, p.loc, p.cfg.Link)
	return &content
}

func (p *Page) View() View {
	view := View{
		Year:        p.year,
		YearOptions: YearOptions(p.cfg.Now().In(p.loc)),
		Status:      p.status,
		Tooltip:     p.tooltip.State(),
		Content:     p.TooltipContent(),
	}
	switch p.status {
	case StatusReady:
		legend := p.filter.Legend()
		grid := RenderGrid(p.year, p.index, p.colors, p.filter.selected)
		view.Legend = &legend
		view.Grid = &grid
	case StatusFailed:
		view.Error = LoadErrorMessage
	}
	return view
}

func (p *Page) repaint(r Repaint) {
	if p.cfg.Repaint != nil && r != 0 {
		p.cfg.Repaint(r)
	}
}

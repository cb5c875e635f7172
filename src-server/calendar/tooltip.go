package calendar

import (
	"fmt"
	"time"
)

const (
	// CellHideDelay applies when the pointer leaves (or focus leaves) a day cell.
	CellHideDelay = 300 * time.Millisecond
	// TooltipHideDelay applies when the pointer leaves the tooltip itself.
	TooltipHideDelay = 200 * time.Millisecond

	// MobileBreakpoint is the viewport width below which taps toggle the tooltip.
	MobileBreakpoint = 768

	// MaxTooltipEvents is how many events the tooltip lists before "+N more".
	MaxTooltipEvents = 3

	TooltipMargin = 10
	TooltipGap    = 10
)

type TooltipState struct {
	Visible       bool   `json:"visible"`
	AnchorDateKey string `json:"anchorDateKey,omitempty"`
	OpenedByTap   bool   `json:"openedByTap,omitempty"` // anchored by a tap rather than hover or focus
}

// Tooltip is the hover/focus/tap state machine. It is not safe for
// concurrent use; every method and every scheduled hide must run on the
// owner's goroutine.
type Tooltip struct {
	sched  Scheduler
	events func(dateKey string) []Event
	onHide func()

	state   TooltipState
	timer   Timer
	pending uint64 // id of the hide task allowed to fire, 0 when none
	nextID  uint64
}

// NewTooltip wires the state machine. events returns the filtered events of
// a day; onHide is called when a scheduled hide actually hides the tooltip.
func NewTooltip(sched Scheduler, events func(dateKey string) []Event, onHide func()) *Tooltip {
	return &Tooltip{sched: sched, events: events, onHide: onHide}
}

func (t *Tooltip) State() TooltipState { return t.state }

// Enter handles pointer-enter and keyboard focus. It reports whether the
// tooltip is now shown for dateKey; days without filtered events are ignored.
func (t *Tooltip) Enter(dateKey string) bool {
	if len(t.events(dateKey)) == 0 {
		return false
	}
	t.cancelHide()
	t.state = TooltipState{Visible: true, AnchorDateKey: dateKey}
	return true
}

// Leave handles pointer-leave and blur of a day cell.
func (t *Tooltip) Leave() { t.scheduleHide(CellHideDelay) }

// TooltipEnter keeps the tooltip open while the pointer is over it.
func (t *Tooltip) TooltipEnter() { t.cancelHide() }

func (t *Tooltip) TooltipLeave() { t.scheduleHide(TooltipHideDelay) }

// Tap toggles the tooltip on narrow viewports. On wide viewports taps are
// no-ops since hover already drives the tooltip. Touch browsers emit
// mouseenter and focus before the click, so only a tooltip that a previous
// tap opened is hidden; one opened by Enter is taken over instead. It
// reports whether the state changed.
func (t *Tooltip) Tap(dateKey string, viewportWidth float64) bool {
	if viewportWidth >= MobileBreakpoint {
		return false
	}
	if t.state.Visible && t.state.AnchorDateKey == dateKey && t.state.OpenedByTap {
		t.Hide()
		return true
	}
	if !t.Enter(dateKey) {
		return false
	}
	t.state.OpenedByTap = true
	return true
}

// OutsideClick hides the tooltip; the caller decides what counts as outside.
func (t *Tooltip) OutsideClick() bool {
	if !t.state.Visible {
		t.cancelHide()
		return false
	}
	t.Hide()
	return true
}

// Hide transitions to Hidden immediately and drops any pending hide.
func (t *Tooltip) Hide() {
	t.cancelHide()
	t.state = TooltipState{}
}

func (t *Tooltip) scheduleHide(d time.Duration) {
	t.cancelHide()
	if t.sched == nil {
		t.state = TooltipState{}
		return
	}
	t.nextID++
	id := t.nextID
	t.pending = id
	t.timer = t.sched.AfterFunc(d, func() {
		// A timer that already fired can still be queued behind a newer
		// Enter; only the latest uncancelled task may hide.
		if t.pending != id {
			return
		}
		t.pending = 0
		t.timer = nil
		if !t.state.Visible {
			return
		}
		t.state = TooltipState{}
		if t.onHide != nil {
			t.onHide()
		}
	})
}

func (t *Tooltip) cancelHide() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = 0
}

type TooltipEvent struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Time      string `json:"time"`
	VenueName string `json:"venueName"`
	Link      string `json:"link"`
}

type TooltipContent struct {
	DateKey string         `json:"dateKey"`
	Events  []TooltipEvent `json:"events"`
	More    int            `json:"more,omitempty"`
}

// MoreLabel renders the overflow notice, empty when nothing overflows.
func (c TooltipContent) MoreLabel() string {
	if c.More <= 0 {
		return ""
	}
	suffix := "s"
	if c.More == 1 {
		suffix = ""
	}
	return fmt.Sprintf("+%d more event%s...", c.More, suffix)
}

// BuildTooltipContent lists the first MaxTooltipEvents filtered events of a day.
func BuildTooltipContent(dateKey string, filtered []Event, colors VenueColorMap, loc *time.Location, link func(eventID string) string) TooltipContent {
	if loc == nil {
		loc = time.Local
	}
	shown := filtered
	content := TooltipContent{DateKey: dateKey}
	if len(shown) > MaxTooltipEvents {
		shown = shown[:MaxTooltipEvents]
		content.More = len(filtered) - MaxTooltipEvents
	}
	content.Events = make([]TooltipEvent, 0, len(shown))
	for _, event := range shown {
		item := TooltipEvent{
			ID:        event.ID,
			Title:     event.Title,
			Color:     colors.ColorOf(event.VenueID),
			Time:      event.StartsAt.In(loc).Format("15:04"),
			VenueName: event.VenueName(),
		}
		if link != nil {
			item.Link = link(event.ID)
		}
		content.Events = append(content.Events, item)
	}
	return content
}

type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Bottom() float64 { return r.Top + r.Height }

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Point struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Position places the tooltip above the anchor, centered, clamped to the
// horizontal viewport margins, and flipped below when it would leave the top.
func Position(anchor Rect, tip Size, viewportWidth float64) Point {
	left := anchor.Left + anchor.Width/2 - tip.Width/2
	top := anchor.Top - tip.Height - TooltipGap

	if left < TooltipMargin {
		left = TooltipMargin
	} else if left+tip.Width > viewportWidth-TooltipMargin {
		left = viewportWidth - tip.Width - TooltipMargin
	}
	if top < TooltipMargin {
		top = anchor.Bottom() + TooltipGap
	}
	return Point{Left: left, Top: top}
}

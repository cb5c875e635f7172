package route

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"evcal/src-server/calendar"
	"evcal/src-server/utils"
	"evcal/src-server/view"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	liveWriteWait      = 10 * time.Second
	livePongWait       = 60 * time.Second
	livePingPeriod     = livePongWait * 9 / 10
	liveMaxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// clientMessage is one DOM input forwarded by the page script.
type clientMessage struct {
	Type          string         `json:"type"`
	Year          int            `json:"year,omitempty"`
	VenueID       string         `json:"venueId,omitempty"`
	Checked       bool           `json:"checked,omitempty"`
	DateKey       string         `json:"dateKey,omitempty"`
	ViewportWidth float64        `json:"viewportWidth,omitempty"`
	Anchor        *calendar.Rect `json:"anchor,omitempty"`
	Size          *calendar.Size `json:"size,omitempty"`
}

// serverMessage replaces one region of the page.
type serverMessage struct {
	Type    string        `json:"type"`
	Status  string        `json:"status,omitempty"`
	Year    int           `json:"year,omitempty"`
	HTML    template.HTML `json:"html,omitempty"`
	DateKey string        `json:"dateKey,omitempty"`
	Left    float64       `json:"left"`
	Top     float64       `json:"top"`
}

// liveSession owns one Page. Every Page call happens on the goroutine
// running run; the reader, timers and fetches reach it through post.
type liveSession struct {
	id       string
	as       *utils.AppState
	renderer *view.Renderer
	conn     *websocket.Conn
	page     *calendar.Page

	ctx    context.Context
	cancel context.CancelFunc

	loop     chan func()
	out      chan serverMessage
	closed   chan struct{} // run returned
	dead     chan struct{} // reader or writer gave up
	deadOnce sync.Once
}

func newLiveSession(ctx context.Context, as *utils.AppState, renderer *view.Renderer, conn *websocket.Conn, v viewer) *liveSession {
	s := &liveSession{
		id:       uuid.NewString(),
		as:       as,
		renderer: renderer,
		conn:     conn,
		loop:     make(chan func(), 64),
		out:      make(chan serverMessage, 64),
		closed:   make(chan struct{}),
		dead:     make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	cfg := pageConfig(as, v)
	cfg.Scheduler = calendar.LoopScheduler{Post: s.post}
	cfg.Post = s.post
	cfg.Repaint = s.repaint
	s.page = calendar.NewPage(cfg)
	return s
}

// post queues f onto the session loop. It is dropped once the session ended.
func (s *liveSession) post(f func()) {
	select {
	case s.loop <- f:
	case <-s.closed:
	}
}

func (s *liveSession) kill() {
	s.deadOnce.Do(func() { close(s.dead) })
}

// serve blocks until the client goes away or the app shuts down.
func (s *liveSession) serve(year int) {
	gracefulShutdownCh := s.as.CreateGracefulShutdownChan()
	defer s.as.ReleaseGracefulShutdownChan(gracefulShutdownCh)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()
	go s.readLoop()

	if err := s.page.Load(s.ctx, year); err != nil {
		slog.Warn("live session started with a failed load", "session", s.id, "year", year, "error", err)
	}
	s.repaint(calendar.RepaintStatus | calendar.RepaintLegend | calendar.RepaintGrid)

	func() {
		for {
			select {
			case f := <-s.loop:
				f()
			case <-s.dead:
				return
			case <-*gracefulShutdownCh:
				return
			}
		}
	}()

	s.cancel()
	close(s.closed)
	wg.Wait()
	s.conn.Close()
}

func (s *liveSession) readLoop() {
	defer s.kill()
	s.conn.SetReadLimit(liveMaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(livePongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("live session read failed", "session", s.id, "error", err)
			}
			return
		}
		s.post(func() { s.handle(msg) })
	}
}

func (s *liveSession) writeLoop() {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				slog.Debug("live session write failed", "session", s.id, "error", err)
				s.kill()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.kill()
				return
			}
		case <-s.closed:
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(liveWriteWait))
			return
		}
	}
}

func (s *liveSession) send(msg serverMessage) {
	select {
	case s.out <- msg:
	case <-s.dead:
	}
}

// handle applies one client input. Tooltip input is ignored while a year
// is loading since the painted grid belongs to the previous year.
func (s *liveSession) handle(msg clientMessage) {
	ready := s.page.Status() == calendar.StatusReady
	tooltip := s.page.Tooltip()
	switch msg.Type {
	case "year":
		if msg.Year < minYear || msg.Year > maxYear {
			slog.Debug("ignoring invalid year", "session", s.id, "year", msg.Year)
			return
		}
		s.page.SelectYear(s.ctx, msg.Year)
	case "toggle":
		s.repaint(s.page.ToggleVenue(s.ctx, msg.VenueID, msg.Checked))
	case "toggleAll":
		s.repaint(s.page.ToggleAllVenues(s.ctx))
	case "enter":
		if ready && tooltip.Enter(msg.DateKey) {
			s.repaint(calendar.RepaintTooltip)
		}
	case "leave":
		tooltip.Leave()
	case "tooltipEnter":
		tooltip.TooltipEnter()
	case "tooltipLeave":
		tooltip.TooltipLeave()
	case "tap":
		if ready && tooltip.Tap(msg.DateKey, msg.ViewportWidth) {
			s.repaint(calendar.RepaintTooltip)
		}
	case "outside":
		if tooltip.OutsideClick() {
			s.repaint(calendar.RepaintTooltip)
		}
	case "measure":
		state := tooltip.State()
		if !state.Visible || state.AnchorDateKey != msg.DateKey || msg.Anchor == nil || msg.Size == nil {
			return
		}
		point := calendar.Position(*msg.Anchor, *msg.Size, msg.ViewportWidth)
		s.send(serverMessage{Type: "position", DateKey: msg.DateKey, Left: point.Left, Top: point.Top})
	default:
		slog.Debug("unknown live message", "session", s.id, "type", msg.Type)
	}
}

// repaint sends the fragments named by r, in status, legend, grid, tooltip order.
func (s *liveSession) repaint(r calendar.Repaint) {
	if r == 0 {
		return
	}
	pageView := s.page.View()
	if r.Has(calendar.RepaintStatus) {
		html, err := s.renderer.Status(pageView)
		if err != nil {
			slog.Error("can't render status", "session", s.id, "error", err)
		}
		s.send(serverMessage{Type: "status", Status: pageView.Status.String(), Year: pageView.Year, HTML: html})
	}
	if r.Has(calendar.RepaintLegend) && pageView.Legend != nil {
		html, err := s.renderer.Legend(pageView.Legend)
		if err != nil {
			slog.Error("can't render legend", "session", s.id, "error", err)
			return
		}
		s.send(serverMessage{Type: "legend", HTML: html})
	}
	if r.Has(calendar.RepaintGrid) && pageView.Grid != nil {
		html, err := s.renderer.Grid(pageView.Grid)
		if err != nil {
			slog.Error("can't render grid", "session", s.id, "error", err)
			return
		}
		s.send(serverMessage{Type: "grid", HTML: html})
	}
	if r.Has(calendar.RepaintTooltip) {
		if !pageView.Tooltip.Visible || pageView.Content == nil {
			s.send(serverMessage{Type: "hide"})
			return
		}
		html, err := s.renderer.Tooltip(pageView.Content)
		if err != nil {
			slog.Error("can't render tooltip", "session", s.id, "error", err)
			return
		}
		s.send(serverMessage{Type: "tooltip", DateKey: pageView.Content.DateKey, HTML: html})
	}
}

func Live(muxer *http.ServeMux, as *utils.AppState) {
	renderer, err := view.NewRenderer()
	if err != nil {
		slog.Error("can't parse calendar templates", "error", err)
		return
	}

	muxer.HandleFunc("GET /calendar/live", ClientMiddleware(func(w http.ResponseWriter, r *http.Request) {
		v, verr := parseViewer(r, as)
		if verr != nil {
			http.Error(w, verr.Message(), http.StatusBadRequest)
			return
		}

		// the client-id cookie set by the middleware rides on the handshake
		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			slog.Debug("can't upgrade live session", "error", err)
			return
		}

		session := newLiveSession(context.WithoutCancel(r.Context()), as, renderer, conn, v)
		live := as.MetricChans.AddLiveSessions(1)
		slog.Debug("live session opened", "session", session.id, "client", v.clientID, "tz", v.tzName, "live", live)
		defer func() {
			live := as.MetricChans.AddLiveSessions(-1)
			slog.Debug("live session closed", "session", session.id, "live", live)
		}()

		session.serve(v.year)
	}))
}

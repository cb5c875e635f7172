package route_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"evcal/src-server/route"
	"evcal/src-server/utils"

	ical "github.com/arran4/golang-ical"
	"github.com/gorilla/websocket"
)

const fixture = `
venues:
  - id: v1
    name: Hall A
  - id: v2
    name: Hall B
events:
  - id: e1
    title: Concert
    starts_at: 2026-03-05T10:00:00Z
    venue_id: v1
    status: published
  - id: e2
    title: Jazz <night>
    starts_at: 2026-03-05T12:00:00Z
    venue_id: v2
    status: published
  - id: e3
    title: Draft
    starts_at: 2026-03-06T12:00:00Z
    venue_id: v2
    status: draft
`

func newServer(t *testing.T) (*httptest.Server, *utils.AppState) {
	t.Helper()
	seedFile := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(seedFile, []byte(fixture), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABASE_URL", "sqlite://:memory:")
	t.Setenv("SEED_FILE", seedFile)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("EVENT_DETAIL_URL", "")

	as, err := utils.NewAppStateFromConfig(context.Background(), utils.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	muxer := http.NewServeMux()
	route.Health(muxer, as)
	route.Calendar(muxer, as)
	route.Live(muxer, as)
	route.Ical(muxer, as)
	route.Static(muxer, as)

	srv := httptest.NewServer(muxer)
	t.Cleanup(func() {
		as.GracefulShutdown()
		srv.Close()
	})
	return srv, as
}

func get(t *testing.T, url string, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func clientCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == route.ClientIDCookieName {
			return cookie
		}
	}
	t.Fatal("no client-id cookie")
	return nil
}

func TestHealthAndRoot(t *testing.T) {
	srv, _ := newServer(t)
	resp, body := get(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK || body != "OK" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}
	resp, _ = get(t, srv.URL+"/")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/calendar" {
		t.Errorf("root = %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestCalendarPage(t *testing.T) {
	srv, _ := newServer(t)

	resp, body := get(t, srv.URL+"/calendar?year=2026&tz=UTC")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	cookie := clientCookie(t, resp)
	for _, want := range []string{"Hall A", "Hall B", `data-date="2026-03-05"`, `aria-label="5 - 2 events"`, "Unselect All"} {
		if !strings.Contains(body, want) {
			t.Errorf("page is missing %q", want)
		}
	}
	if strings.Contains(body, `aria-label="6 - 1 event"`) {
		t.Error("draft event was rendered")
	}

	// a known client keeps its id
	resp, _ = get(t, srv.URL+"/calendar?year=2026", cookie)
	if len(resp.Cookies()) != 0 {
		t.Errorf("cookie reissued: %v", resp.Cookies())
	}
}

func TestCalendarBadRequest(t *testing.T) {
	srv, _ := newServer(t)
	for _, query := range []string{"year=abc", "year=0", "year=10000", "tz=Mars/Olympus"} {
		resp, _ := get(t, srv.URL+"/calendar?"+query)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d", query, resp.StatusCode)
		}
	}
}

type apiBody struct {
	Year   int `json:"year"`
	Legend struct {
		ToggleLabel string `json:"toggleLabel"`
		Rows        []struct {
			VenueID string `json:"venueId"`
			Checked bool   `json:"checked"`
		} `json:"rows"`
	} `json:"legend"`
	Grid struct {
		Months []struct {
			Days []struct {
				EventCount int `json:"eventCount"`
			} `json:"days"`
		} `json:"months"`
	} `json:"grid"`
}

func getAPI(t *testing.T, srv *httptest.Server, cookie *http.Cookie) apiBody {
	t.Helper()
	resp, body := get(t, srv.URL+"/api/calendar?year=2026&tz=UTC", cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	var out apiBody
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestCalendarAPI(t *testing.T) {
	srv, _ := newServer(t)
	resp, _ := get(t, srv.URL+"/calendar?year=2026")
	out := getAPI(t, srv, clientCookie(t, resp))
	if out.Year != 2026 || len(out.Legend.Rows) != 2 || len(out.Grid.Months) != 12 {
		t.Fatalf("body = %+v", out)
	}
	if got := out.Grid.Months[2].Days[4].EventCount; got != 2 {
		t.Errorf("March 5 event count = %d", got)
	}
}

func TestLoadFailure(t *testing.T) {
	srv, as := newServer(t)
	as.BunDB.Close()

	resp, body := get(t, srv.URL+"/api/calendar?year=2026")
	if resp.StatusCode != http.StatusBadGateway || !strings.Contains(body, "Failed to load calendar data") {
		t.Errorf("api = %d %s", resp.StatusCode, body)
	}
	resp, body = get(t, srv.URL+"/calendar?year=2026")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Failed to load calendar data. Please try again.") {
		t.Errorf("page = %d", resp.StatusCode)
	}
	if resp, _ := get(t, srv.URL+"/health"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("health = %d", resp.StatusCode)
	}
}

func TestIcalExport(t *testing.T) {
	srv, _ := newServer(t)
	resp, body := get(t, srv.URL+"/calendar/2026/ics?tz=UTC")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar") {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d", len(events))
	}
	location := events[0].GetProperty(ical.ComponentPropertyLocation)
	if location == nil || location.Value != "Hall A" {
		t.Errorf("location = %+v", location)
	}
	link := events[0].GetProperty(ical.ComponentPropertyUrl)
	if link == nil || !strings.HasSuffix(link.Value, "/event-details.html?id=e1") || !strings.HasPrefix(link.Value, "http://") {
		t.Errorf("url = %+v", link)
	}

	if resp, _ := get(t, srv.URL+"/calendar/abc/ics"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad year status = %d", resp.StatusCode)
	}
}

type liveMessage struct {
	Type    string  `json:"type"`
	Status  string  `json:"status"`
	Year    int     `json:"year"`
	HTML    string  `json:"html"`
	DateKey string  `json:"dateKey"`
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
}

func readLive(t *testing.T, conn *websocket.Conn, want string) liveMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg liveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func sendLive(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatal(err)
	}
}

func TestLiveSession(t *testing.T) {
	srv, as := newServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/calendar/live?year=2026&tz=UTC"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	cookie := clientCookie(t, resp)

	if status := readLive(t, conn, "status"); status.Status != "ready" || status.Year != 2026 {
		t.Fatalf("status = %+v", status)
	}
	if legend := readLive(t, conn, "legend"); !strings.Contains(legend.HTML, "Hall A") {
		t.Errorf("legend = %s", legend.HTML)
	}
	readLive(t, conn, "grid")
	if n := as.MetricChans.LiveSessions(); n != 1 {
		t.Errorf("live sessions = %d", n)
	}

	sendLive(t, conn, map[string]any{"type": "enter", "dateKey": "2026-03-05"})
	tooltip := readLive(t, conn, "tooltip")
	if tooltip.DateKey != "2026-03-05" || !strings.Contains(tooltip.HTML, "Concert") || strings.Contains(tooltip.HTML, "<night>") {
		t.Errorf("tooltip = %+v", tooltip)
	}

	sendLive(t, conn, map[string]any{
		"type":          "measure",
		"dateKey":       "2026-03-05",
		"viewportWidth": 1200,
		"anchor":        map[string]any{"left": 100, "top": 300, "width": 40, "height": 40},
		"size":          map[string]any{"width": 200, "height": 100},
	})
	if pos := readLive(t, conn, "position"); pos.Left != 20 || pos.Top != 190 {
		t.Errorf("position = %+v", pos)
	}

	sendLive(t, conn, map[string]any{"type": "toggle", "venueId": "v2", "checked": false})
	readLive(t, conn, "grid")
	if tooltip := readLive(t, conn, "tooltip"); strings.Contains(tooltip.HTML, "Jazz") {
		t.Errorf("filtered tooltip still lists Jazz: %s", tooltip.HTML)
	}

	// the selection is stored for this client
	out := getAPI(t, srv, cookie)
	for _, row := range out.Legend.Rows {
		if row.Checked != (row.VenueID == "v1") {
			t.Errorf("row %+v", row)
		}
	}

	sendLive(t, conn, map[string]any{"type": "outside"})
	readLive(t, conn, "hide")

	sendLive(t, conn, map[string]any{"type": "year", "year": 2027})
	if status := readLive(t, conn, "status"); status.Status != "loading" || status.Year != 2027 {
		t.Errorf("status = %+v", status)
	}
	if status := readLive(t, conn, "status"); status.Status != "ready" || status.Year != 2027 {
		t.Errorf("status = %+v", status)
	}
}

func TestLiveSessionHoverDebounce(t *testing.T) {
	srv, _ := newServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/calendar/live?year=2026&tz=UTC"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	readLive(t, conn, "grid")

	sendLive(t, conn, map[string]any{"type": "enter", "dateKey": "2026-03-05"})
	readLive(t, conn, "tooltip")
	started := time.Now()
	sendLive(t, conn, map[string]any{"type": "leave"})
	readLive(t, conn, "hide")
	if elapsed := time.Since(started); elapsed < 250*time.Millisecond {
		t.Errorf("hid after %s, before the cell delay", elapsed)
	}
}

func TestLiveSessionRejectsBadYear(t *testing.T) {
	srv, _ := newServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/calendar/live?year=nope"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("resp = %+v", resp)
	}
}

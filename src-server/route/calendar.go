package route

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"evcal/src-server/calendar"
	"evcal/src-server/utils"
	"evcal/src-server/view"
)

const (
	minYear = 1
	maxYear = 9999
)

// viewer is who is looking at the calendar: their client id, zone and year.
type viewer struct {
	clientID string
	loc      *time.Location
	tzName   string
	year     int
}

// parseViewer reads ?year= and ?tz=. A missing zone falls back to TIMEZONE
// and a missing year to the current year in that zone.
func parseViewer(r *http.Request, as *utils.AppState) (viewer, *utils.CustomError) {
	v := viewer{
		clientID: ClientID(r),
		loc:      as.Config.GetLocation(),
	}
	if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return v, utils.NewCustomError("invalid time zone", map[string]any{
				"tz":    tz,
				"error": err,
			})
		}
		v.loc = loc
	}
	v.tzName = v.loc.String()

	v.year = time.Now().In(v.loc).Year()
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < minYear || year > maxYear {
			return v, utils.NewCustomError("invalid year", map[string]any{
				"year": raw,
			})
		}
		v.year = year
	}
	return v, nil
}

// pageHooks forwards page activity to the metric collectors.
func pageHooks(as *utils.AppState) calendar.Hooks {
	return calendar.Hooks{
		OnLoad: func(_ int, took time.Duration, err error) {
			result := utils.LOAD_RESULT_OK
			if err != nil {
				result = utils.LOAD_RESULT_ERROR
			}
			as.MetricChans.ObserveCalendarLoad(result, float64(took.Microseconds()))
		},
		OnStaleLoad: func(int) {
			as.MetricChans.ObserveStaleLoad()
		},
		OnPreferenceSaveErr: func(error) {
			as.MetricChans.ObservePreferenceSaveFailure()
		},
	}
}

func pageConfig(as *utils.AppState, v viewer) calendar.PageConfig {
	return calendar.PageConfig{
		Source:   as.Store,
		Storage:  as.Store.ClientStorage(v.clientID),
		Location: v.loc,
		Link:     as.Config.EventDetailLink,
		Hooks:    pageHooks(as),
	}
}

// loadPage renders one year for v synchronously. A failed load still
// returns the page; its view carries the error.
func loadPage(ctx context.Context, as *utils.AppState, v viewer) (*calendar.Page, error) {
	page := calendar.NewPage(pageConfig(as, v))
	err := page.Load(ctx, v.year)
	return page, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("can't write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

func Calendar(muxer *http.ServeMux, as *utils.AppState) {
	renderer, err := view.NewRenderer()
	if err != nil {
		slog.Error("can't parse calendar templates", "error", err)
		return
	}

	// server-rendered page; the embedded script takes over through /calendar/live
	muxer.HandleFunc("GET /calendar", ClientMiddleware(func(w http.ResponseWriter, r *http.Request) {
		v, verr := parseViewer(r, as)
		if verr != nil {
			slog.Debug("bad calendar request", verr.LogArgs()...)
			http.Error(w, verr.Message(), http.StatusBadRequest)
			return
		}

		page, _ := loadPage(r.Context(), as, v)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := renderer.Page(w, view.PageData{
			View:     page.View(),
			TimeZone: v.tzName,
			LiveURL:  "/calendar/live",
		}); err != nil {
			slog.Error("can't render calendar page", "error", err)
		}
	}))

	type calendarRespBody struct {
		Year        int              `json:"year"`
		YearOptions []int            `json:"yearOptions"`
		TimeZone    string           `json:"timeZone"`
		Legend      *calendar.Legend `json:"legend"`
		Grid        *calendar.Grid   `json:"grid"`
	}

	// view model as JSON
	muxer.HandleFunc("GET /api/calendar", ClientMiddleware(func(w http.ResponseWriter, r *http.Request) {
		v, verr := parseViewer(r, as)
		if verr != nil {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}

		page, err := loadPage(r.Context(), as, v)
		if err != nil {
			writeError(w, http.StatusBadGateway, calendar.LoadErrorMessage)
			return
		}
		pageView := page.View()
		writeJSON(w, http.StatusOK, calendarRespBody{
			Year:        pageView.Year,
			YearOptions: pageView.YearOptions,
			TimeZone:    v.tzName,
			Legend:      pageView.Legend,
			Grid:        pageView.Grid,
		})
	}))
}

func Health(muxer *http.ServeMux, as *utils.AppState) {
	muxer.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := as.RawDb.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

package route

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"evcal/src-server/calendar"
	"evcal/src-server/utils"

	ical "github.com/arran4/golang-ical"
)

// buildIcal turns the events a viewer sees into a VCALENDAR. Relative event
// links are made absolute against origin.
func buildIcal(year int, events []calendar.Event, link func(string) string, origin string, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//evcal//Event Calendar//EN")
	cal.SetXWRCalName(fmt.Sprintf("Events %d", year))

	for _, event := range events {
		vevent := cal.AddEvent(event.ID)
		vevent.SetDtStampTime(now)
		vevent.SetStartAt(event.StartsAt.UTC())
		vevent.SetSummary(event.Title)
		if event.Description != "" {
			vevent.SetDescription(event.Description)
		}
		if event.Venue != nil {
			vevent.SetLocation(event.Venue.Name)
		}
		if link != nil {
			href := link(event.ID)
			if strings.HasPrefix(href, "/") {
				href = origin + href
			}
			vevent.SetURL(href)
		}
	}
	return cal
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func Ical(muxer *http.ServeMux, as *utils.AppState) {
	// the events of one year that pass the viewer's venue selection
	muxer.HandleFunc("GET /calendar/{year}/ics", ClientMiddleware(func(w http.ResponseWriter, r *http.Request) {
		v, verr := parseViewer(r, as)
		if verr != nil {
			http.Error(w, verr.Message(), http.StatusBadRequest)
			return
		}
		year, err := strconv.Atoi(r.PathValue("year"))
		if err != nil || year < minYear || year > maxYear {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		v.year = year

		page, err := loadPage(r.Context(), as, v)
		if err != nil {
			http.Error(w, calendar.LoadErrorMessage, http.StatusBadGateway)
			return
		}

		cal := buildIcal(year, page.FilteredEvents(), as.Config.EventDetailLink, requestOrigin(r), time.Now())
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="events-%d.ics"`, year))
		w.WriteHeader(http.StatusOK)
		if err := cal.SerializeTo(w); err != nil {
			slog.Warn("can't write to response", "where", "route/ical.go", "error", err)
		}
	}))
}

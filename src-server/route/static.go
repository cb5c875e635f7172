package route

import (
	"net/http"

	"evcal/src-server/utils"
	"evcal/src-server/view"
)

// Static serves the embedded page assets and sends the bare root to the calendar.
func Static(muxer *http.ServeMux, as *utils.AppState) {
	muxer.Handle("GET /static/", http.StripPrefix("/static/", view.Static()))

	muxer.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
}

package metric

import (
	"context"
	"log/slog"
	"time"

	"evcal/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unregisterOnShutdown drops c from reg once the app shuts down.
func unregisterOnShutdown(as *utils.AppState, reg prometheus.Registerer, name string, c prometheus.Collector) {
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	go func() {
		<-*gracefulShutdownCh
		switch reg.Unregister(c) {
		case true:
			slog.Debug(name + " metric unregistered")
		case false:
			slog.Warn(name + " metric not registered")
		}
	}()
}

func databaseEmptyRead(as *utils.AppState, reg prometheus.Registerer, tickerInterval time.Duration) {
	const name = "evcal_database_empty_read_microsec"
	databaseEmptyRead := promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: "The latency of an empty database read in microseconds",
	})
	slog.Debug(name + " metric registered")
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				reg.Unregister(databaseEmptyRead)
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), tickerInterval)
				latency, err := ProbeEmptyRead(ctx, as.BunDB)
				cancel()
				if err != nil {
					slog.Error("can't get database latency", "error", err)
					continue
				}
				databaseEmptyRead.Set(float64(latency.Microseconds()))
			}
		}
	}()
}

// latencyGauge shows the last sample of ch and falls back to 0 when no
// sample arrived for clearTickerInterval.
func latencyGauge(as *utils.AppState, reg prometheus.Registerer, name, help string, ch chan float64, clearTickerInterval time.Duration) {
	gauge := promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	})
	slog.Debug(name + " metric registered")
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		clearTicker := time.NewTicker(clearTickerInterval)
		defer clearTicker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				reg.Unregister(gauge)
				return
			case latency := <-ch:
				gauge.Set(latency)
				clearTicker.Reset(clearTickerInterval)
			case <-clearTicker.C:
				gauge.Set(0)
			}
		}
	}()
}

func calendarLoads(as *utils.AppState, reg prometheus.Registerer) {
	const name = "evcal_calendar_loads_total"
	loads := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "Calendar year loads applied to a page, by result",
	}, []string{"result"})
	for _, result := range []string{utils.LOAD_RESULT_OK, utils.LOAD_RESULT_ERROR} {
		loads.WithLabelValues(result)
	}
	slog.Debug(name + " metric registered")
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		for {
			select {
			case <-*gracefulShutdownCh:
				reg.Unregister(loads)
				return
			case result := <-as.MetricChans.CalendarLoad:
				loads.WithLabelValues(result).Inc()
			}
		}
	}()
}

// eventCounter counts every receive on ch.
func eventCounter(as *utils.AppState, reg prometheus.Registerer, name, help string, ch chan struct{}) {
	counter := promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: help,
	})
	slog.Debug(name + " metric registered")
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		for {
			select {
			case <-*gracefulShutdownCh:
				reg.Unregister(counter)
				return
			case <-ch:
				counter.Inc()
			}
		}
	}()
}

func liveSessions(as *utils.AppState, reg prometheus.Registerer) {
	const name = "evcal_live_sessions"
	sessions := promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: name,
		Help: "Open live calendar sessions",
	}, func() float64 {
		return float64(as.MetricChans.LiveSessions())
	})
	slog.Debug(name + " metric registered")
	unregisterOnShutdown(as, reg, name, sessions)
}

// Init registers every collector on reg and starts their feeders. They stop
// on as.GracefulShutdown.
func Init(as *utils.AppState, reg prometheus.Registerer) {
	tickerInterval := as.Config.GetMetricCollectionInterval()
	clearTickerInterval := as.Config.GetMetricCollectionInterval() * 2

	databaseEmptyRead(as, reg, tickerInterval)
	latencyGauge(as, reg, "evcal_database_read_microsec",
		"The latency of a database read in microseconds",
		as.MetricChans.DatabaseRead, clearTickerInterval)
	latencyGauge(as, reg, "evcal_database_write_microsec",
		"The latency of a database write in microseconds",
		as.MetricChans.DatabaseWrite, clearTickerInterval)
	latencyGauge(as, reg, "evcal_calendar_load_microsec",
		"The latency of a joined venues and events fetch in microseconds",
		as.MetricChans.CalendarLoadLatency, clearTickerInterval)
	calendarLoads(as, reg)
	eventCounter(as, reg, "evcal_stale_loads_discarded_total",
		"Loads discarded because the viewer switched years before they completed",
		as.MetricChans.StaleLoadDiscarded)
	eventCounter(as, reg, "evcal_preference_save_failures_total",
		"Venue selection saves that failed",
		as.MetricChans.PreferenceSaveFailure)
	liveSessions(as, reg)
}

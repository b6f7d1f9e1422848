// Package metrics reports hub state to Prometheus. Gauges follow the event
// bus, so no module has to know about metrics.
package metrics

import (
	"net/http"

	"github.com/dkeye/Lobbyhub/internal/app"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ResultOK = "ok"

type Reporter struct {
	registry *prometheus.Registry

	sessions prometheus.Gauge
	lobbies  *prometheus.GaugeVec
	starts   prometheus.Counter
	commands *prometheus.CounterVec
}

func NewReporter() *Reporter {
	r := &Reporter{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nohub_sessions",
			Help: "Number of live sessions.",
		}),
		lobbies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nohub_lobbies",
			Help: "Number of active lobbies by lock state and visibility.",
		}, []string{"locked", "visibility"}),
		starts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nohub_lobby_starts_total",
			Help: "Number of lobby starts.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nohub_commands_total",
			Help: "Number of handled commands by name and result.",
		}, []string{"command", "result"}),
	}
	r.registry.MustRegister(
		r.sessions, r.lobbies, r.starts, r.commands,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Attach follows the lifecycle events published on bus.
func (r *Reporter) Attach(bus *app.EventBus) {
	app.On(bus, "metrics.session-open", func(app.SessionOpened) error {
		r.sessions.Inc()
		return nil
	})
	app.On(bus, "metrics.session-close", func(app.SessionClosed) error {
		r.sessions.Dec()
		return nil
	})
	app.On(bus, "metrics.lobby-create", func(e app.LobbyCreated) error {
		r.lobbyGauge(e.Lobby).Inc()
		return nil
	})
	app.On(bus, "metrics.lobby-change", func(e app.LobbyChanged) error {
		r.lobbyGauge(e.From).Dec()
		r.lobbyGauge(e.To).Inc()
		return nil
	})
	app.On(bus, "metrics.lobby-delete", func(e app.LobbyDeleted) error {
		r.lobbyGauge(e.Lobby).Dec()
		return nil
	})
	app.On(bus, "metrics.lobby-start", func(app.LobbyStarted) error {
		r.starts.Inc()
		return nil
	})
}

func (r *Reporter) lobbyGauge(l domain.Lobby) prometheus.Gauge {
	locked, visibility := l.MetricLabels()
	return r.lobbies.WithLabelValues(locked, visibility)
}

// ObserveCommand counts one handled command; failures are labelled with their error kind.
func (r *Reporter) ObserveCommand(name string, err error) {
	result := ResultOK
	if err != nil {
		result = string(domain.KindOf(err))
	}
	r.commands.WithLabelValues(name, result).Inc()
}

func (r *Reporter) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Package metrics exposes game and socket metrics for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vntrieu/mafia/internal/games"
)

// Recorder holds the server's collectors on its own registry. It implements
// games.Observer for engine outcomes.
type Recorder struct {
	registry *prometheus.Registry

	ActionsAccepted  *prometheus.CounterVec
	ActionsRejected  *prometheus.CounterVec
	PhaseTransitions *prometheus.CounterVec
	GamesEnded       *prometheus.CounterVec
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	MessagesReceived *prometheus.CounterVec
	MessageLatency   prometheus.Histogram
}

var _ games.Observer = (*Recorder)(nil)

// New creates a Recorder whose metric names start with namespace.
func New(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ActionsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_accepted_total",
			Help:      "Actions and votes accepted, by action type",
		}, []string{"action_type"}),
		ActionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_rejected_total",
			Help:      "Rejected submissions, by reason",
		}, []string{"reason"}),
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Phase changes, by source and destination phase",
		}, []string{"from", "to"}),
		GamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Finished games, by winning team",
		}, []string{"winner"}),
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected WebSocket clients",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms with at least one connected client",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_received_total",
			Help:      "WebSocket messages received, by message type",
		}, []string{"type"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ActionsAccepted,
		r.ActionsRejected,
		r.PhaseTransitions,
		r.GamesEnded,
		r.OnlinePlayers,
		r.ActiveRooms,
		r.MessagesReceived,
		r.MessageLatency,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ActionAccepted(t games.ActionType) {
	r.ActionsAccepted.WithLabelValues(string(t)).Inc()
}

func (r *Recorder) ActionRejected(reason games.Reason) {
	r.ActionsRejected.WithLabelValues(string(reason)).Inc()
}

func (r *Recorder) PhaseChanged(from, to games.Phase) {
	r.PhaseTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (r *Recorder) GameEnded(winner games.Team) {
	label := string(winner)
	if label == "" {
		label = "none"
	}
	r.GamesEnded.WithLabelValues(label).Inc()
}

// ClientConnected and ClientDisconnected track open sockets.
func (r *Recorder) ClientConnected()    { r.OnlinePlayers.Inc() }
func (r *Recorder) ClientDisconnected() { r.OnlinePlayers.Dec() }

// SetActiveRooms records the number of rooms with connected clients.
func (r *Recorder) SetActiveRooms(n int) { r.ActiveRooms.Set(float64(n)) }

// MessageHandled counts a WebSocket message and its processing time.
func (r *Recorder) MessageHandled(msgType string, took time.Duration) {
	r.MessagesReceived.WithLabelValues(msgType).Inc()
	r.MessageLatency.Observe(took.Seconds())
}

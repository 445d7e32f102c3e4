package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons reported on quiz_events_dropped_total.
const (
	ReasonUnknownRoom        = "unknown_room"
	ReasonUnknownParticipant = "unknown_participant"
	ReasonNotCreator         = "not_creator"
	ReasonMalformed          = "malformed"
	ReasonRateLimited        = "rate_limited"
)

// Metrics holds the session engine collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ActiveRooms       prometheus.Gauge
	ActiveConnections prometheus.Gauge
	Answers           *prometheus.CounterVec
	DroppedEvents     *prometheus.CounterVec
	RoomsReplaced     prometheus.Counter
	Scoreboards       *prometheus.CounterVec
	PersistDuration   prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_rooms_active",
			Help: "Number of live quiz rooms",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_connections_active",
			Help: "Number of connected clients",
		}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_answers_total",
			Help: "Answer submissions applied to a room",
		}, []string{"result"}),
		DroppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_events_dropped_total",
			Help: "Inbound events dropped without mutating state",
		}, []string{"reason"}),
		RoomsReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_rooms_replaced_total",
			Help: "Quiz starts that overwrote a live room",
		}),
		Scoreboards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_scoreboards_total",
			Help: "Final scoreboards by persistence outcome",
		}, []string{"result"}),
		PersistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_scoreboard_persist_seconds",
			Help:    "Time spent persisting a final scoreboard, retries included",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}),
	}
	reg.MustRegister(
		m.ActiveRooms,
		m.ActiveConnections,
		m.Answers,
		m.DroppedEvents,
		m.RoomsReplaced,
		m.Scoreboards,
		m.PersistDuration,
	)
	return m
}

func (m *Metrics) SetActiveRooms(n int) {
	if m == nil {
		return
	}
	m.ActiveRooms.Set(float64(n))
}

func (m *Metrics) SetActiveConnections(n int) {
	if m == nil {
		return
	}
	m.ActiveConnections.Set(float64(n))
}

func (m *Metrics) ObserveAnswer(correct bool) {
	if m == nil {
		return
	}
	result := "incorrect"
	if correct {
		result = "correct"
	}
	m.Answers.WithLabelValues(result).Inc()
}

func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.DroppedEvents.WithLabelValues(reason).Inc()
}

func (m *Metrics) RoomReplaced() {
	if m == nil {
		return
	}
	m.RoomsReplaced.Inc()
}

// ObservePersist records one finished scoreboard write.
func (m *Metrics) ObservePersist(took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "persisted"
	if err != nil {
		result = "failed"
	}
	m.Scoreboards.WithLabelValues(result).Inc()
	m.PersistDuration.Observe(took.Seconds())
}

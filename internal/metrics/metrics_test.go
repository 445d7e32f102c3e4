package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetActiveRooms(3)
	m.SetActiveConnections(7)
	m.ObserveAnswer(true)
	m.ObserveAnswer(true)
	m.ObserveAnswer(false)
	m.Dropped(ReasonNotCreator)
	m.ObservePersist(time.Millisecond, nil)
	m.ObservePersist(time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.ActiveRooms); got != 3 {
		t.Fatalf("expected 3 rooms, got %v", got)
	}
	if got := testutil.ToFloat64(m.ActiveConnections); got != 7 {
		t.Fatalf("expected 7 connections, got %v", got)
	}
	if got := testutil.ToFloat64(m.Answers.WithLabelValues("correct")); got != 2 {
		t.Fatalf("expected 2 correct answers, got %v", got)
	}
	if got := testutil.ToFloat64(m.DroppedEvents.WithLabelValues(ReasonNotCreator)); got != 1 {
		t.Fatalf("expected 1 drop, got %v", got)
	}
	if got := testutil.ToFloat64(m.Scoreboards.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed scoreboard, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SetActiveRooms(1)
	m.ObserveAnswer(true)
	m.Dropped(ReasonMalformed)
	m.RoomReplaced()
	m.ObservePersist(time.Second, nil)
}

// Package metrics exposes dispatch counters to Prometheus. Values are fed
// from the event bus, so the dispatcher itself has no metrics dependency.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recobot/internal/eventbus"
	logx "recobot/pkg/logx"
)

var (
	RunsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recobot_runs_started_total",
		Help: "Total number of dispatch runs started",
	}, []string{"mode", "trigger"})
	RunsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recobot_runs_finished_total",
		Help: "Total number of dispatch runs by terminal result (finished/aborted)",
	}, []string{"mode", "result"})
	// Group names are deliberately not labels; they are unbounded.
	GroupsDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recobot_groups_delivered_total",
		Help: "Total number of groups a message was sent to",
	})
	GroupsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recobot_groups_failed_total",
		Help: "Total number of failed group deliveries by failure kind",
	}, []string{"kind"})
	DeliveryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recobot_delivery_duration_seconds",
		Help:    "Time spent delivering one message through the UI",
		Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
	})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recobot_run_duration_seconds",
		Help:    "Wall time of a dispatch run",
		Buckets: prometheus.ExponentialBuckets(10, 2, 9),
	})
	RunActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recobot_run_active",
		Help: "1 while a dispatch run holds the browser session",
	})
)

func init() {
	prometheus.MustRegister(RunsStarted)
	prometheus.MustRegister(RunsFinished)
	prometheus.MustRegister(GroupsDelivered)
	prometheus.MustRegister(GroupsFailed)
	prometheus.MustRegister(DeliveryDuration)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(RunActive)
}

// Handler returns an http.Handler exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Record applies one event to the collectors.
func Record(e eventbus.Event) {
	switch e.Type {
	case eventbus.RunStarted:
		if info, ok := e.Data.(eventbus.RunInfo); ok {
			RunsStarted.WithLabelValues(info.Mode, info.Trigger).Inc()
		}
		RunActive.Set(1)
	case eventbus.GroupDelivered:
		GroupsDelivered.Inc()
		if info, ok := e.Data.(eventbus.GroupInfo); ok {
			DeliveryDuration.Observe(info.Took.Seconds())
		}
	case eventbus.GroupFailed:
		if info, ok := e.Data.(eventbus.GroupInfo); ok {
			GroupsFailed.WithLabelValues(info.Kind).Inc()
		}
	case eventbus.RunFinished, eventbus.RunAborted:
		result := "finished"
		if e.Type == eventbus.RunAborted {
			result = "aborted"
		}
		if info, ok := e.Data.(eventbus.RunInfo); ok {
			RunsFinished.WithLabelValues(info.Mode, result).Inc()
			RunDuration.Observe(info.Took.Seconds())
		}
		RunActive.Set(0)
	}
}

// Consume records events from bus until ctx ends.
func Consume(ctx context.Context, bus eventbus.Bus, log logx.Logger) error {
	ch, unsub := bus.Subscribe(256)
	defer unsub()
	if !log.IsZero() {
		log.Debug("metrics consumer started", logx.Comp("metrics"))
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			Record(e)
		}
	}
}

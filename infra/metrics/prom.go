package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/induction/core/metrics"
)

// PromConfig configures the Prometheus sink. When PushURL is set every
// recorded run is pushed to a Pushgateway under Job.
type PromConfig struct {
	Namespace string `json:"namespace"`
	PushURL   string `json:"push_url"`
	Job       string `json:"job"`
}

// SetDefaults fills in the namespace and job name.
func (c *PromConfig) SetDefaults() {
	if c.Namespace == "" {
		c.Namespace = "induction"
	}
	if c.Job == "" {
		c.Job = "induction_planner"
	}
}

// PromSink records planning runs in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	solve     *prometheus.HistogramVec
	stages    *prometheus.HistogramVec
	fleet     *prometheus.GaugeVec
	objective prometheus.Gauge
	pusher    *push.Pusher
}

// NewPromSink registers run metrics on the default Prometheus registerer.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer) (*PromSink, error) {
	cfg.SetDefaults()
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "runs_total",
		Help:      "Planning runs by solver status and outcome",
	}, []string{"engine", "status", "outcome"})
	solve := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Name:      "solve_seconds",
		Help:      "Time spent in the optimisation engine",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"engine"})
	stages := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Name:      "stage_seconds",
		Help:      "Duration of each pipeline stage",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage", "failed"})
	fleet := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Name:      "fleet_vehicles",
		Help:      "Vehicles per assigned status in the last plan",
	}, []string{"status"})
	objective := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Name:      "objective_value",
		Help:      "Objective value of the last plan",
	})

	var err error
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if solve, err = register(reg, solve); err != nil {
		return nil, err
	}
	if stages, err = register(reg, stages); err != nil {
		return nil, err
	}
	if fleet, err = register(reg, fleet); err != nil {
		return nil, err
	}
	if objective, err = register(reg, objective); err != nil {
		return nil, err
	}

	s := &PromSink{runs: runs, solve: solve, stages: stages, fleet: fleet, objective: objective}
	if cfg.PushURL != "" {
		s.pusher = push.New(cfg.PushURL, cfg.Job).
			Collector(runs).
			Collector(solve).
			Collector(stages).
			Collector(fleet).
			Collector(objective)
	}
	return s, nil
}

// register adds c to reg or returns the collector already registered
// under the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun implements coremetrics.Sink.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Engine, ev.Status, ev.Outcome).Inc()
	if ev.SolveTime > 0 {
		s.solve.WithLabelValues(ev.Engine).Observe(ev.SolveTime.Seconds())
	}
	if ev.Outcome == coremetrics.OutcomeOK {
		s.fleet.WithLabelValues("service").Set(float64(ev.Service))
		s.fleet.WithLabelValues("standby").Set(float64(ev.Standby))
		s.fleet.WithLabelValues("maintenance").Set(float64(ev.Maintenance))
		s.fleet.WithLabelValues("ineligible").Set(float64(ev.Ineligible))
		s.objective.Set(float64(ev.Objective))
	}
	return nil
}

// RecordStage implements coremetrics.StageRecorder.
func (s *PromSink) RecordStage(ev coremetrics.StageEvent) error {
	failed := "false"
	if ev.Failed {
		failed = "true"
	}
	s.stages.WithLabelValues(ev.Stage, failed).Observe(ev.Duration.Seconds())
	return nil
}

// Flush pushes the collected metrics when a Pushgateway is configured.
func (s *PromSink) Flush() error {
	if s.pusher == nil {
		return nil
	}
	if err := s.pusher.Push(); err != nil {
		return fmt.Errorf("pushgateway: %w", err)
	}
	return nil
}

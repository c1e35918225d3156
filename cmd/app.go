package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kilianp07/induction/config"
	"github.com/kilianp07/induction/core/dataset"
	"github.com/kilianp07/induction/core/eligibility"
	"github.com/kilianp07/induction/core/metrics"
	coremon "github.com/kilianp07/induction/core/monitoring"
	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/pipeline"
	"github.com/kilianp07/induction/core/planner"
	"github.com/kilianp07/induction/core/solver"
	"github.com/kilianp07/induction/infra/logger"
	"github.com/kilianp07/induction/infra/monitoring"
	"github.com/kilianp07/induction/infra/mqtt"
)

// session holds the components of one CLI invocation.
type session struct {
	cfg    *config.Config
	log    logger.Logger
	runner *pipeline.Runner
	closer func()
}

func (s *session) Close() {
	if s.closer != nil {
		s.closer()
	}
}

// newSession wires the pipeline from the configuration. MQTT is only
// connected when publish is set and a broker is configured.
func newSession(cfg *config.Config, publish bool) (*session, error) {
	log := logger.NewWithConfig("induction", cfg.Log)
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		log.Warnf("sentry disabled: %v", err)
	} else {
		coremon.Init(mon)
	}
	for _, w := range cfg.Planner.PriorityWarnings() {
		log.Warnf("planner weights: %s", w)
	}

	provider, err := dataset.New(cfg.Dataset)
	if err != nil {
		return nil, model.NewError(model.KindValidation, "dataset", err)
	}
	builder, err := planner.NewBuilder(cfg.Planner, logger.NewWithConfig("planner", cfg.Log))
	if err != nil {
		return nil, err
	}
	engine, err := solver.NewEngine(cfg.Engine)
	if err != nil {
		return nil, model.NewError(model.KindValidation, "engine", err)
	}
	sink, err := metrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, model.NewError(model.KindValidation, "metrics", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger.NewWithConfig("pipeline", cfg.Log)),
		pipeline.WithMetrics(sink),
	}
	s := &session{cfg: cfg, log: log}
	s.closer = func() {
		if err := metrics.Close(sink); err != nil {
			log.Warnf("metrics: close: %v", err)
		}
	}
	if publish && cfg.PublishEnabled() {
		pub, err := mqtt.NewPlanPublisher(cfg.MQTT)
		if err != nil {
			s.Close()
			return nil, model.NewError(model.KindPrecondition, "mqtt", err)
		}
		opts = append(opts, pipeline.WithPublisher(pub))
		closeSink := s.closer
		s.closer = func() {
			pub.Disconnect()
			closeSink()
		}
	}

	s.runner, err = pipeline.NewRunner(provider, eligibility.NewEvaluator(cfg.Eligibility), builder, engine, cfg.Routes, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	log.Debugf("configuration: %s", cfg)
	return s, nil
}

// signalContext cancels on SIGINT or SIGTERM so an interrupted solve
// reports a timeout instead of hanging.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

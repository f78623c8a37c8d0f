package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/whspr/internal/bus"
	"github.com/leonardotrapani/whspr/internal/logging"
	"github.com/leonardotrapani/whspr/internal/metrics"
	"github.com/leonardotrapani/whspr/internal/notify"
	"github.com/leonardotrapani/whspr/internal/pipeline"
)

// Locker is the single-instance lock.
type Locker interface {
	Acquire(ctx context.Context) (bus.Outcome, error)
	Release() error
}

// Signals delivers the first toggle or abort of this process.
type Signals interface {
	Wait(ctx context.Context) (bus.Event, error)
	Ignore()
	Stop()
}

// Runner is one dictation pipeline.
type Runner interface {
	Run(ctx context.Context, actions <-chan pipeline.Action) (pipeline.Result, error)
	Status() pipeline.Status
}

// BuildFunc assembles the pipeline once this process owns the lock.
type BuildFunc func(obs pipeline.Observer, logger zerolog.Logger) (Runner, error)

type Options struct {
	Lock     Locker
	Listen   func() Signals
	Build    BuildFunc
	Notifier notify.Notifier
	// MetricsFile, when set, receives the session metrics on exit.
	MetricsFile string
}

// Report describes what one invocation did.
type Report struct {
	Lock      bus.Outcome
	SessionID string
	Result    pipeline.Result
}

// Session is a single invocation: it either runs the dictation pipeline or
// toggles the process that already does.
type Session struct {
	opts    Options
	metrics *metrics.Session
	log     zerolog.Logger
}

func New(opts Options) *Session {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Listen == nil {
		opts.Listen = func() Signals { return bus.Listen() }
	}
	return &Session{
		opts:    opts,
		metrics: metrics.New(),
		log:     log.With().Str("component", "session").Logger(),
	}
}

func (s *Session) Run(ctx context.Context) (Report, error) {
	var report Report

	// handlers go in before the lock exists, a toggle must never find
	// SIGUSR1 at its default disposition
	sig := s.opts.Listen()
	defer sig.Stop()

	outcome, err := s.opts.Lock.Acquire(ctx)
	if err != nil {
		s.opts.Notifier.Error(err.Error())
		return report, err
	}
	report.Lock = outcome
	if outcome == bus.SignalSent {
		return report, nil
	}
	obs := &observer{notifier: s.opts.Notifier, metrics: s.metrics}
	// lock before pending notifications
	defer func() {
		if err := s.opts.Lock.Release(); err != nil {
			s.log.Error().Err(err).Msg("failed to release lock")
		}
		obs.wait()
	}()

	report.SessionID = logging.NewSessionID()
	logger := logging.ForSession(report.SessionID)
	s.log = logger.With().Str("component", "session").Logger()

	runner, err := s.opts.Build(obs, logger)
	if err != nil {
		err = fmt.Errorf("configure session: %w", err)
		msg := err.Error()
		obs.async(func() { s.opts.Notifier.Error(msg) })
		return report, err
	}

	actions := make(chan pipeline.Action, 1)
	waitCtx, stopWaiting := context.WithCancel(ctx)
	defer stopWaiting()
	go s.forward(waitCtx, sig, runner, actions)

	result, err := runner.Run(ctx, actions)
	report.Result = result
	s.finish(obs, result, err)
	return report, err
}

// forward turns the first signal into a pipeline action. Anything after it
// is drained by the listener and logged.
func (s *Session) forward(ctx context.Context, sig Signals, runner Runner, actions chan<- pipeline.Action) {
	ev, err := sig.Wait(ctx)
	if err != nil {
		return
	}
	sig.Ignore()

	action := pipeline.Toggle
	if ev.IsAbort() {
		action = pipeline.Abort
	}
	if status := runner.Status(); status != pipeline.Recording {
		s.log.Warn().Stringer("event", ev).Str("status", string(status)).Msg("session past recording, signal ignored")
	}
	actions <- action
}

func (s *Session) finish(obs *observer, result pipeline.Result, err error) {
	s.metrics.ObserveRecording(result.Audio)
	s.metrics.Finish(string(result.Outcome), len(result.Text))

	event := s.log.Info()
	if err != nil {
		event = s.log.Error().Err(err)
	}
	event.Str("outcome", string(result.Outcome)).
		Dur("duration", result.Duration).
		Msg("session finished")

	n := s.opts.Notifier
	switch {
	case err != nil:
		msg := err.Error()
		obs.async(func() { n.Error(msg) })
	case result.Outcome == pipeline.Aborted:
		obs.async(n.Aborted)
	case result.Outcome == pipeline.DeliveryFailed:
		obs.async(func() { n.Error("could not type the transcription") })
	}

	if s.opts.MetricsFile != "" {
		if werr := s.metrics.WriteTextfile(s.opts.MetricsFile); werr != nil {
			s.log.Warn().Err(werr).Msg("failed to write metrics")
		}
	}
}

// ExitCode maps the result of Run to the process exit status.
func ExitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

// observer feeds pipeline progress to metrics and notifications.
type observer struct {
	notifier notify.Notifier
	metrics  *metrics.Session
	pending  sync.WaitGroup
}

func (o *observer) StatusChanged(from, to pipeline.Status) {
	switch {
	case to == pipeline.Recording:
		o.async(o.notifier.RecordingStarted)
	case from == pipeline.Recording && to == pipeline.Transcribing:
		o.async(func() {
			o.notifier.RecordingEnded()
			o.notifier.Transcribing()
		})
	}
}

// async runs a notification without holding up the session.
func (o *observer) async(fn func()) {
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		fn()
	}()
}

func (o *observer) StageDone(stage pipeline.Stage, elapsed time.Duration, err error) {
	o.metrics.ObserveStage(string(stage), elapsed, err)
}

// wait lets in-flight notifications finish before the process exits.
func (o *observer) wait() {
	o.pending.Wait()
}

package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session holds the metrics of one invocation. Each invocation is a fresh
// process, so values describe the last session and are flushed to a
// node-exporter textfile on exit.
type Session struct {
	registry *prometheus.Registry

	lastRun       prometheus.Gauge
	outcome       *prometheus.GaugeVec
	stageDuration *prometheus.GaugeVec
	stageErrors   *prometheus.GaugeVec
	recording     prometheus.Gauge
	textChars     prometheus.Gauge
}

func New() *Session {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Session{
		registry: reg,
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "whspr_last_session_timestamp_seconds",
			Help: "Unix time the last dictation session finished",
		}),
		outcome: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "whspr_last_session_outcome",
			Help: "Outcome of the last session (1 for the outcome that happened)",
		}, []string{"outcome"}),
		stageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "whspr_last_stage_duration_seconds",
			Help: "Duration of each pipeline stage in the last session",
		}, []string{"stage"}),
		stageErrors: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "whspr_last_stage_failed",
			Help: "1 if the stage failed in the last session",
		}, []string{"stage"}),
		recording: factory.NewGauge(prometheus.GaugeOpts{
			Name: "whspr_last_recording_seconds",
			Help: "Length of captured audio in the last session",
		}),
		textChars: factory.NewGauge(prometheus.GaugeOpts{
			Name: "whspr_last_transcript_characters",
			Help: "Length of the last delivered transcript",
		}),
	}
}

func (s *Session) ObserveStage(stage string, d time.Duration, err error) {
	s.stageDuration.WithLabelValues(stage).Set(d.Seconds())
	failed := 0.0
	if err != nil {
		failed = 1
	}
	s.stageErrors.WithLabelValues(stage).Set(failed)
}

func (s *Session) ObserveRecording(d time.Duration) {
	s.recording.Set(d.Seconds())
}

// Finish records the outcome and the transcript length.
func (s *Session) Finish(outcome string, chars int) {
	s.outcome.Reset()
	s.outcome.WithLabelValues(outcome).Set(1)
	s.textChars.Set(float64(chars))
	s.lastRun.SetToCurrentTime()
}

// WriteTextfile atomically writes the metrics in text exposition format.
func (s *Session) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

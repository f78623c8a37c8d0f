package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/whspr/internal/recording"
	"github.com/leonardotrapani/whspr/internal/transcriber"
)

type Status string
type Action string
type Outcome string

const (
	Idle         Status = "idle"
	Recording    Status = "recording"
	Transcribing Status = "transcribing"
	Injecting    Status = "injecting"
	Terminated   Status = "terminated"
)

const (
	Toggle Action = "toggle"
	Abort  Action = "abort"
)

const (
	Delivered      Outcome = "delivered"
	DeliveryFailed Outcome = "delivery_failed"
	Aborted        Outcome = "aborted"
	NoAudio        Outcome = "no_audio"
	NoSpeech       Outcome = "no_speech"
	Failed         Outcome = "failed"
)

// Capture is the audio capture handle. Done is closed when the capture
// ends without Stop, e.g. the device went away.
type Capture interface {
	Start(ctx context.Context) error
	Stop() (recording.Buffer, error)
	Done() <-chan struct{}
}

// Cues play the start and stop sounds and block until playback ends.
type Cues interface {
	PlayStart(ctx context.Context) error
	PlayStop(ctx context.Context) error
}

// Overlay shows the recording indicator. Show returns the func that
// terminates it, nil when nothing was started.
type Overlay interface {
	Show(ctx context.Context) func()
}

type Deliverer interface {
	Inject(ctx context.Context, text string) error
}

// Observer is told about state changes and finished stages.
type Observer interface {
	StatusChanged(from, to Status)
	StageDone(stage Stage, elapsed time.Duration, err error)
}

type Deps struct {
	Capture   Capture
	Loader    transcriber.Loader
	Deliverer Deliverer
	Cues      Cues     // optional
	Overlay   Overlay  // optional
	Observer  Observer // optional
}

type Config struct {
	// MaxDuration ends recording as if toggled; 0 means no limit.
	MaxDuration time.Duration
}

type Result struct {
	Outcome Outcome
	Text    string
	// Audio is the length of the captured audio.
	Audio time.Duration
	// Duration is the wall time of the whole session.
	Duration time.Duration
}

// Pipeline runs one dictation session: record, transcribe, deliver.
type Pipeline struct {
	config Config
	deps   Deps
	log    zerolog.Logger

	mu     sync.Mutex
	status Status
}

func New(config Config, deps Deps) *Pipeline {
	if deps.Cues == nil {
		deps.Cues = noCues{}
	}
	if deps.Overlay == nil {
		deps.Overlay = noOverlay{}
	}
	if deps.Observer == nil {
		deps.Observer = noObserver{}
	}
	return &Pipeline{
		config: config,
		deps:   deps,
		log:    log.With().Str("component", "pipeline").Logger(),
		status: Idle,
	}
}

// WithLogger replaces the pipeline's logger, e.g. with a session-tagged one.
func (p *Pipeline) WithLogger(l zerolog.Logger) *Pipeline {
	p.log = l.With().Str("component", "pipeline").Logger()
	return p
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) setStatus(s Status) {
	p.mu.Lock()
	from := p.status
	p.status = s
	p.mu.Unlock()

	if from != s {
		p.log.Debug().Str("from", string(from)).Str("to", string(s)).Msg("status changed")
		p.deps.Observer.StatusChanged(from, s)
	}
}

type loadResult struct {
	engine transcriber.Engine
	err    error
}

type textResult struct {
	text string
	err  error
}

// Run drives one session until it terminates. Only Recording reacts to
// actions and ctx; once transcription starts the session runs to completion.
// A closed actions channel counts as Abort.
func (p *Pipeline) Run(ctx context.Context, actions <-chan Action) (result Result, err error) {
	started := time.Now()
	result.Outcome = Failed
	defer func() {
		result.Duration = time.Since(started)
		p.setStatus(Terminated)
	}()

	// the cue must be over before the microphone opens
	if err := p.deps.Cues.PlayStart(ctx); err != nil {
		p.log.Warn().Err(err).Msg("start cue failed")
	}
	if ctx.Err() != nil {
		result.Outcome = Aborted
		return result, nil
	}

	hide := p.deps.Overlay.Show(ctx)

	captureStart := time.Now()
	if err := p.deps.Capture.Start(ctx); err != nil {
		terminate(hide)
		p.deps.Observer.StageDone(StageAudio, time.Since(captureStart), err)
		return result, &StageError{Stage: StageAudio, Err: err}
	}
	p.setStatus(Recording)
	p.log.Info().Msg("recording")

	preloadCtx, cancelPreload := context.WithCancel(ctx)
	defer cancelPreload()
	preload := make(chan loadResult, 1)
	go func() {
		t0 := time.Now()
		engine, err := p.deps.Loader.Load(preloadCtx)
		p.deps.Observer.StageDone(StageModel, time.Since(t0), err)
		preload <- loadResult{engine: engine, err: err}
	}()

	action := p.waitAction(ctx, actions)

	if action == Abort {
		terminate(hide)
		if _, err := p.deps.Capture.Stop(); err != nil && !errors.Is(err, recording.ErrNoAudio) {
			p.log.Debug().Err(err).Msg("discarding capture")
		}
		p.log.Info().Msg("aborted, audio discarded")
		result.Outcome = Aborted
		return result, nil
	}

	// overlay exit overlaps capture stop; both finish before the stop cue
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		terminate(hide)
	}()
	buf, stopErr := p.deps.Capture.Stop()
	wg.Wait()
	p.deps.Observer.StageDone(StageAudio, time.Since(captureStart), stopErr)

	if err := p.deps.Cues.PlayStop(context.WithoutCancel(ctx)); err != nil {
		p.log.Warn().Err(err).Msg("stop cue failed")
	}

	if stopErr != nil && !errors.Is(stopErr, recording.ErrNoAudio) {
		return result, &StageError{Stage: StageAudio, Err: stopErr}
	}

	p.setStatus(Transcribing)
	if stopErr != nil {
		p.log.Warn().Err(stopErr).Msg("capture produced nothing to transcribe")
		result.Outcome = NoAudio
		return result, nil
	}
	result.Audio = buf.Duration()

	loaded := <-preload
	if loaded.err != nil {
		return result, &StageError{Stage: StageModel, Err: loaded.err}
	}

	// from here on the session is not cancellable
	workCtx := context.WithoutCancel(ctx)

	text, terr := p.transcribe(workCtx, loaded.engine, buf)
	if terr != nil {
		return result, &StageError{Stage: StageTranscription, Err: terr}
	}
	if text == "" {
		p.log.Info().Dur("audio", result.Audio).Msg("no speech detected")
		result.Outcome = NoSpeech
		return result, nil
	}
	result.Text = text

	p.setStatus(Injecting)
	if err := p.deliver(workCtx, text); err != nil {
		p.log.Error().Err(err).Msg("delivery failed")
		result.Outcome = DeliveryFailed
		return result, nil
	}

	p.log.Info().Int("chars", len(text)).Dur("audio", result.Audio).Msg("text delivered")
	result.Outcome = Delivered
	return result, nil
}

// waitAction blocks until Toggle, Abort, the duration limit, the end of
// capture or ctx.
func (p *Pipeline) waitAction(ctx context.Context, actions <-chan Action) Action {
	captureDone := p.deps.Capture.Done()

	var limit <-chan time.Time
	if p.config.MaxDuration > 0 {
		timer := time.NewTimer(p.config.MaxDuration)
		defer timer.Stop()
		limit = timer.C
	}

	for {
		select {
		case action, ok := <-actions:
			if !ok {
				return Abort
			}
			switch action {
			case Toggle, Abort:
				p.log.Debug().Str("action", string(action)).Msg("received action")
				return action
			default:
				p.log.Warn().Str("action", string(action)).Msg("unknown action ignored")
			}

		case <-limit:
			p.log.Info().Dur("limit", p.config.MaxDuration).Msg("max recording duration reached")
			return Toggle

		case <-captureDone:
			if ctx.Err() != nil {
				return Abort
			}
			// Stop reports why
			p.log.Warn().Msg("capture ended while recording")
			return Toggle

		case <-ctx.Done():
			p.log.Debug().Err(ctx.Err()).Msg("context done while recording")
			return Abort
		}
	}
}

func (p *Pipeline) transcribe(ctx context.Context, engine transcriber.Engine, buf recording.Buffer) (string, error) {
	done := make(chan textResult, 1)
	t0 := time.Now()
	go func() {
		text, err := engine.Transcribe(ctx, buf.Samples, buf.SampleRate)
		done <- textResult{text: strings.TrimSpace(text), err: err}
	}()

	r := <-done
	p.deps.Observer.StageDone(StageTranscription, time.Since(t0), r.err)
	return r.text, r.err
}

func (p *Pipeline) deliver(ctx context.Context, text string) error {
	done := make(chan error, 1)
	t0 := time.Now()
	go func() {
		done <- p.deps.Deliverer.Inject(ctx, text)
	}()

	err := <-done
	p.deps.Observer.StageDone(StageDelivery, time.Since(t0), err)
	return err
}

func terminate(hide func()) {
	if hide != nil {
		hide()
	}
}

type noCues struct{}

func (noCues) PlayStart(context.Context) error { return nil }
func (noCues) PlayStop(context.Context) error  { return nil }

type noOverlay struct{}

func (noOverlay) Show(context.Context) func() { return nil }

type noObserver struct{}

func (noObserver) StatusChanged(Status, Status)          {}
func (noObserver) StageDone(Stage, time.Duration, error) {}

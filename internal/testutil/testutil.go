package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/leonardotrapani/whspr/internal/recording"
	"github.com/leonardotrapani/whspr/internal/transcriber"
)

// Journal records collaborator calls in the order they happen.
type Journal struct {
	mu     sync.Mutex
	events []string
}

func (j *Journal) Record(event string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.events = append(j.events, event)
	j.mu.Unlock()
}

func (j *Journal) Events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.events))
	copy(out, j.events)
	return out
}

// Index returns the position of the first occurrence of event, or -1.
func (j *Journal) Index(event string) int {
	for i, e := range j.Events() {
		if e == event {
			return i
		}
	}
	return -1
}

// Count returns how many times event was recorded.
func (j *Journal) Count(event string) int {
	n := 0
	for _, e := range j.Events() {
		if e == event {
			n++
		}
	}
	return n
}

// Before reports whether a was recorded and precedes b (or b never happened).
func (j *Journal) Before(a, b string) bool {
	ia, ib := j.Index(a), j.Index(b)
	return ia >= 0 && (ib < 0 || ia < ib)
}

// MockRecorder is a capture handle. Start records "capture.start", Stop
// records "capture.stop" once the buffer is drained.
type MockRecorder struct {
	Journal   *Journal
	StartErr  error
	Buffer    recording.Buffer
	StopErr   error
	StopDelay time.Duration

	mu      sync.Mutex
	started bool
	stops   int
	done    chan struct{}
}

func NewMockRecorder(j *Journal, seconds float64) *MockRecorder {
	rate := 16000
	return &MockRecorder{
		Journal: j,
		Buffer: recording.Buffer{
			Samples:    make([]float32, int(seconds*float64(rate))),
			SampleRate: rate,
		},
	}
}

func (m *MockRecorder) Start(ctx context.Context) error {
	m.Journal.Record("capture.start")
	if m.StartErr != nil {
		return m.StartErr
	}
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	return nil
}

func (m *MockRecorder) Stop() (recording.Buffer, error) {
	if m.StopDelay > 0 {
		time.Sleep(m.StopDelay)
	}
	m.mu.Lock()
	m.stops++
	m.started = false
	stopErr := m.StopErr
	m.mu.Unlock()
	m.Journal.Record("capture.stop")
	if stopErr != nil {
		return recording.Buffer{}, stopErr
	}
	return m.Buffer, nil
}

// Done is closed by Die.
func (m *MockRecorder) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		m.done = make(chan struct{})
	}
	return m.done
}

// Die simulates the capture process exiting on its own: Done closes and
// Stop returns err.
func (m *MockRecorder) Die(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		m.done = make(chan struct{})
	}
	m.StopErr = err
	close(m.done)
}

func (m *MockRecorder) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *MockRecorder) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// MockCues records begin and end of each cue; Delay simulates playback.
type MockCues struct {
	Journal *Journal
	Delay   time.Duration
}

func (m *MockCues) PlayStart(ctx context.Context) error {
	m.Journal.Record("cue.start.begin")
	time.Sleep(m.Delay)
	m.Journal.Record("cue.start.end")
	return nil
}

func (m *MockCues) PlayStop(ctx context.Context) error {
	m.Journal.Record("cue.stop.begin")
	time.Sleep(m.Delay)
	m.Journal.Record("cue.stop.end")
	return nil
}

// MockOverlay counts spawns and terminations.
type MockOverlay struct {
	Journal *Journal
	Fail    bool
	// HideDelay simulates a slow overlay exit.
	HideDelay time.Duration

	mu    sync.Mutex
	shows int
	hides int
}

func (m *MockOverlay) Show(ctx context.Context) func() {
	m.Journal.Record("overlay.show")
	if m.Fail {
		return nil
	}
	m.mu.Lock()
	m.shows++
	m.mu.Unlock()
	return func() {
		time.Sleep(m.HideDelay)
		m.mu.Lock()
		m.hides++
		m.mu.Unlock()
		m.Journal.Record("overlay.hide")
	}
}

func (m *MockOverlay) Counts() (shows, hides int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shows, m.hides
}

// MockLoader hands out Engine after Delay, or fails with Err.
type MockLoader struct {
	Journal *Journal
	Engine  transcriber.Engine
	Err     error
	Delay   time.Duration

	mu    sync.Mutex
	loads int
}

func (m *MockLoader) Load(ctx context.Context) (transcriber.Engine, error) {
	m.mu.Lock()
	m.loads++
	m.mu.Unlock()
	m.Journal.Record("model.load.begin")
	select {
	case <-time.After(m.Delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	m.Journal.Record("model.load.end")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Engine, nil
}

func (m *MockLoader) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// MockEngine returns a fixed transcription.
type MockEngine struct {
	Journal *Journal
	Text    string
	Err     error

	mu      sync.Mutex
	calls   int
	samples int
	rate    int
}

func NewMockEngine(j *Journal, text string) *MockEngine {
	return &MockEngine{Journal: j, Text: text}
}

func (m *MockEngine) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	m.mu.Lock()
	m.calls++
	m.samples = len(samples)
	m.rate = sampleRate
	m.mu.Unlock()
	m.Journal.Record("transcribe")
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Input returns the sample count and rate of the last call.
func (m *MockEngine) Input() (samples, rate int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.samples, m.rate
}

type MockInjector struct {
	Journal *Journal
	Err     error

	mu       sync.Mutex
	injected []string
}

func NewMockInjector(j *Journal) *MockInjector {
	return &MockInjector{Journal: j}
}

func (m *MockInjector) Inject(ctx context.Context, text string) error {
	m.Journal.Record("inject")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.injected = append(m.injected, text)
	return nil
}

func (m *MockInjector) GetInjectedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.injected))
	copy(result, m.injected)
	return result
}

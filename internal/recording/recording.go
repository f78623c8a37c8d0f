package recording

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoAudio is returned by Stop when the capture produced no samples.
	ErrNoAudio = errors.New("no audio data captured")
	// ErrNotRecording is returned by Stop on a recorder that was never started
	// or was already stopped.
	ErrNotRecording = errors.New("not recording")
)

// ExitError reports a capture process that ended without being stopped.
type ExitError struct {
	Binary string
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited", e.Binary)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// stderrLimit caps how much capture stderr is kept for error reports.
const stderrLimit = 2048

// Buffer is the mono capture drained by Stop.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

type Config struct {
	SampleRate int
	Channels   int
	Format     string
	BufferSize int
	Device     string
	// Binary is the capture program, pw-record unless set.
	Binary string
	// StopTimeout bounds how long Stop waits for the capture process to flush.
	StopTimeout time.Duration
	// StartTimeout bounds how long Start waits for the first audio bytes.
	// A process still running after it counts as started.
	StartTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		SampleRate:   16000,
		Channels:     1,
		Format:       "s16",
		BufferSize:   8192,
		Device:       "",
		Binary:       "pw-record",
		StopTimeout:  2 * time.Second,
		StartTimeout: 500 * time.Millisecond,
	}
}

// Recorder captures from pw-record into memory. Start and Stop are called
// from the controlling goroutine; a reader goroutine appends to the buffer
// under mu, held only for the append or the final drain.
type Recorder struct {
	config    Config
	recording atomic.Bool
	log       zerolog.Logger

	mu     sync.Mutex // guards data and stderr
	data   []byte
	stderr []byte

	cmd     *exec.Cmd
	cancel  context.CancelFunc
	exited  chan struct{} // closed once the process has been reaped
	exitErr error         // set before exited is closed
}

func NewRecorder(config Config) *Recorder {
	if config.Binary == "" {
		config.Binary = "pw-record"
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = 2 * time.Second
	}
	if config.StartTimeout <= 0 {
		config.StartTimeout = 500 * time.Millisecond
	}
	return &Recorder{
		config: config,
		log:    log.With().Str("component", "recording").Logger(),
	}
}

// Done is closed when the capture process has exited, whether Stop ended
// it or it died on its own.
func (r *Recorder) Done() <-chan struct{} {
	if r.exited == nil {
		return nil
	}
	return r.exited
}

// Start launches the capture process and waits until audio flows, the
// process exits or StartTimeout passes. An early exit is returned as an
// *ExitError carrying the tail of the process's stderr.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.recording.CompareAndSwap(false, true) {
		return fmt.Errorf("already recording")
	}

	if err := r.validateConfig(); err != nil {
		r.recording.Store(false)
		return err
	}

	captureCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(captureCtx, r.config.Binary, r.buildPwRecordArgs()...)
	// pw-record flushes its pipe on SIGINT; a kill would drop the tail
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = r.config.StopTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		r.recording.Store(false)
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		r.recording.Store(false)
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		r.recording.Store(false)
		return fmt.Errorf("start %s: %w", r.config.Binary, err)
	}

	r.mu.Lock()
	r.data = r.data[:0]
	r.stderr = r.stderr[:0]
	r.mu.Unlock()

	flowing := make(chan struct{})
	exited := make(chan struct{})
	r.cmd = cmd
	r.cancel = cancel
	r.exited = exited
	r.exitErr = nil

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		r.stderrLoop(stderr)
	}()
	go func() {
		defer readers.Done()
		r.captureLoop(stdout, flowing)
	}()
	// Wait only once both pipes are drained
	go func() {
		readers.Wait()
		r.exitErr = cmd.Wait()
		close(exited)
	}()

	timer := time.NewTimer(r.config.StartTimeout)
	defer timer.Stop()
	select {
	case <-flowing:
	case <-exited:
		select {
		case <-flowing:
			// audio came before the exit; Stop reports what there is
		default:
			err := r.exitError()
			cancel()
			r.reset()
			return err
		}
	case <-timer.C:
		r.log.Debug().Dur("timeout", r.config.StartTimeout).Msg("no audio yet, capture still running")
	}

	r.log.Debug().Int("pid", cmd.Process.Pid).Int("rate", r.config.SampleRate).Msg("capture started")
	return nil
}

// Stop ends the capture and drains everything recorded so far.
func (r *Recorder) Stop() (Buffer, error) {
	if !r.recording.CompareAndSwap(true, false) {
		return Buffer{}, ErrNotRecording
	}

	var died error
	select {
	case <-r.exited:
		// nobody asked it to stop
		died = r.exitError()
	default:
	}

	r.cancel()
	select {
	case <-r.exited:
		if died == nil && r.exitErr != nil {
			// interrupted is the normal way out
			r.log.Debug().Err(r.exitErr).Msg("capture process exited")
		}
	case <-time.After(2 * r.config.StopTimeout):
		r.log.Warn().Msg("capture process did not exit in time")
	}

	r.mu.Lock()
	raw := r.data
	r.data = nil
	r.mu.Unlock()
	r.reset()

	samples := decodeS16(raw, r.config.Channels)
	if len(samples) == 0 {
		if died != nil {
			return Buffer{}, died
		}
		return Buffer{}, ErrNoAudio
	}
	if died != nil {
		r.log.Warn().Err(died).Msg("capture ended early, keeping what was recorded")
	}

	buf := Buffer{Samples: samples, SampleRate: r.config.SampleRate}
	r.log.Debug().Int("samples", len(samples)).Dur("duration", buf.Duration()).Msg("capture stopped")
	return buf, nil
}

func (r *Recorder) reset() {
	r.cmd = nil
	r.cancel = nil
	r.recording.Store(false)
}

// exitError describes a process that exited without Stop. Call only after
// exited is closed.
func (r *Recorder) exitError() error {
	r.mu.Lock()
	tail := strings.TrimSpace(string(r.stderr))
	r.mu.Unlock()

	err := r.exitErr
	if err == nil {
		err = errors.New("exit status 0")
	}
	return &ExitError{Binary: r.config.Binary, Err: err, Stderr: tail}
}

func (r *Recorder) stderrLoop(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		r.log.Debug().Str("stderr", line).Msg("capture output")

		r.mu.Lock()
		if len(r.stderr) > 0 {
			r.stderr = append(r.stderr, '\n')
		}
		r.stderr = append(r.stderr, line...)
		if over := len(r.stderr) - stderrLimit; over > 0 {
			r.stderr = r.stderr[over:]
		}
		r.mu.Unlock()
	}
}

func (r *Recorder) captureLoop(stdout io.Reader, flowing chan<- struct{}) {
	first := true
	chunk := make([]byte, r.config.BufferSize)
	for {
		n, err := stdout.Read(chunk)
		if n > 0 {
			r.mu.Lock()
			r.data = append(r.data, chunk[:n]...)
			r.mu.Unlock()
			if first {
				close(flowing)
				first = false
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				r.log.Warn().Err(err).Msg("read audio")
			}
			return
		}
	}
}

// decodeS16 converts interleaved little-endian s16 frames to mono float32,
// averaging channels. A trailing partial frame is dropped.
func decodeS16(raw []byte, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	frameBytes := 2 * channels
	frames := len(raw) / frameBytes
	if frames == 0 {
		return nil
	}

	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			off := i*frameBytes + c*2
			sum += float32(int16(binary.LittleEndian.Uint16(raw[off:]))) / 32768
		}
		out[i] = sum / float32(channels)
	}
	return out
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", r.config.Format,
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"-", // stdout
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

// CheckPipeWireAvailable verifies pw-record exists and the PipeWire daemon answers.
func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", r.config.BufferSize)
	}
	if r.config.Format != "s16" {
		return fmt.Errorf("invalid Format: %q (only s16 is supported)", r.config.Format)
	}
	frameBytes := 2 * r.config.Channels
	if r.config.BufferSize%frameBytes != 0 {
		r.log.Debug().Int("buffer_size", r.config.BufferSize).Int("frame_bytes", frameBytes).
			Msg("buffer size not aligned to frame size")
	}
	return nil
}

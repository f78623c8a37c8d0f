package bus

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Event is one of the external wakeups a recording session listens for.
type Event int

const (
	Toggle    Event = iota + 1 // SIGUSR1 from a second invocation
	Interrupt                  // SIGINT
	Terminate                  // SIGTERM
)

func (e Event) String() string {
	switch e {
	case Toggle:
		return "toggle"
	case Interrupt:
		return "interrupt"
	case Terminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// IsAbort reports whether the event cancels the session.
func (e Event) IsAbort() bool {
	return e == Interrupt || e == Terminate
}

// ToggleSignal is sent process-to-process to stop recording.
const ToggleSignal = unix.SIGUSR1

// SendToggle asks the session owner with the given pid to stop recording.
func SendToggle(pid int) error {
	return unix.Kill(pid, ToggleSignal)
}

// Listener turns SIGUSR1, SIGINT and SIGTERM into a single-shot Event.
// Install it before writing the lock, otherwise an early toggle would hit
// the default SIGUSR1 disposition and kill the owner.
type Listener struct {
	ch    chan os.Signal
	fired atomic.Bool
	done  chan struct{}
	stop  sync.Once
	log   zerolog.Logger
}

func Listen() *Listener {
	l := &Listener{
		ch:   make(chan os.Signal, 4),
		done: make(chan struct{}),
		log:  log.With().Str("component", "signal").Logger(),
	}
	signal.Notify(l.ch, ToggleSignal, unix.SIGINT, unix.SIGTERM)
	return l
}

// Wait blocks until the first of the three events arrives. It resolves at
// most once per Listener; later calls return ErrAlreadyFired.
func (l *Listener) Wait(ctx context.Context) (Event, error) {
	if !l.fired.CompareAndSwap(false, true) {
		return 0, ErrAlreadyFired
	}
	select {
	case sig := <-l.ch:
		ev := eventFor(sig)
		l.log.Debug().Stringer("signal", sig).Stringer("event", ev).Msg("signal received")
		return ev, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-l.done:
		return 0, ErrAlreadyFired
	}
}

// Ignore drains and logs signals that arrive after the wait resolved.
// Transcription and injection are not cancellable.
func (l *Listener) Ignore() {
	go func() {
		for {
			select {
			case sig := <-l.ch:
				l.log.Warn().Stringer("signal", sig).Msg("session past recording, signal ignored")
			case <-l.done:
				return
			}
		}
	}()
}

// Stop restores default signal handling.
func (l *Listener) Stop() {
	l.stop.Do(func() {
		signal.Stop(l.ch)
		close(l.done)
	})
}

func eventFor(sig os.Signal) Event {
	switch sig {
	case ToggleSignal:
		return Toggle
	case unix.SIGINT:
		return Interrupt
	default:
		return Terminate
	}
}

package bus

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestListenerToggle(t *testing.T) {
	l := Listen()
	defer l.Stop()

	if err := unix.Kill(os.Getpid(), ToggleSignal); err != nil {
		t.Fatalf("failed to signal self: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ev, err := l.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if ev != Toggle {
		t.Errorf("expected toggle, got %s", ev)
	}
	if ev.IsAbort() {
		t.Error("toggle must not abort")
	}

	t.Run("single shot", func(t *testing.T) {
		if _, err := l.Wait(ctx); !errors.Is(err, ErrAlreadyFired) {
			t.Errorf("expected ErrAlreadyFired, got %v", err)
		}
	})

	t.Run("late signals are drained", func(t *testing.T) {
		l.Ignore()
		if err := unix.Kill(os.Getpid(), ToggleSignal); err != nil {
			t.Fatalf("failed to signal self: %v", err)
		}
		// still alive: the drained signal did not hit the default disposition
		time.Sleep(20 * time.Millisecond)
	})
}

func TestListenerContextCancel(t *testing.T) {
	l := Listen()
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestListenerStopUnblocksWait(t *testing.T) {
	l := Listen()

	done := make(chan error, 1)
	go func() {
		_, err := l.Wait(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	l.Stop()
	l.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, ErrAlreadyFired) {
			t.Errorf("expected ErrAlreadyFired, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Stop")
	}
}

func TestEventFor(t *testing.T) {
	tests := []struct {
		sig   os.Signal
		want  Event
		abort bool
	}{
		{unix.SIGUSR1, Toggle, false},
		{unix.SIGINT, Interrupt, true},
		{unix.SIGTERM, Terminate, true},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			ev := eventFor(tt.sig)
			if ev != tt.want {
				t.Errorf("eventFor(%v) = %s, want %s", tt.sig, ev, tt.want)
			}
			if ev.IsAbort() != tt.abort {
				t.Errorf("IsAbort() = %v, want %v", ev.IsAbort(), tt.abort)
			}
		})
	}
}

func TestProcessChecker(t *testing.T) {
	checker := NewProcessChecker()

	t.Run("invalid pid", func(t *testing.T) {
		if got := checker.Check(0); got != ProcessGone {
			t.Errorf("Check(0) = %s", got)
		}
		if got := checker.Check(-5); got != ProcessGone {
			t.Errorf("Check(-5) = %s", got)
		}
	})

	t.Run("own pid is foreign", func(t *testing.T) {
		if got := checker.Check(os.Getpid()); got != ProcessForeign {
			t.Errorf("Check(self) = %s, want foreign", got)
		}
	})

	t.Run("other program is foreign", func(t *testing.T) {
		path, err := exec.LookPath("sleep")
		if err != nil {
			t.Skip("sleep not available")
		}
		cmd := exec.Command(path, "5")
		if err := cmd.Start(); err != nil {
			t.Fatalf("start sleep: %v", err)
		}
		defer func() {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}()

		if got := checker.Check(cmd.Process.Pid); got != ProcessForeign {
			t.Errorf("Check(sleep) = %s, want foreign", got)
		}
	})

	t.Run("exited process is gone", func(t *testing.T) {
		path, err := exec.LookPath("true")
		if err != nil {
			t.Skip("true not available")
		}
		cmd := exec.Command(path)
		if err := cmd.Run(); err != nil {
			t.Fatalf("run true: %v", err)
		}
		if got := checker.Check(cmd.Process.Pid); got != ProcessGone {
			t.Errorf("Check(exited) = %s, want gone", got)
		}
	})
}

func TestSameProgram(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		self      string
		want      bool
	}{
		{"identical", "/usr/bin/whspr", "/usr/bin/whspr", true},
		{"different dir", "/home/u/go/bin/whspr", "/usr/bin/whspr", true},
		{"replaced binary", "/usr/bin/whspr (deleted)", "/usr/bin/whspr", true},
		{"bare argv0", "whspr", "/usr/bin/whspr", true},
		{"other program", "/usr/bin/firefox", "/usr/bin/whspr", false},
		{"empty candidate", "", "/usr/bin/whspr", false},
		{"empty self", "/usr/bin/whspr", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameProgram(tt.candidate, tt.self); got != tt.want {
				t.Errorf("sameProgram(%q, %q) = %v, want %v", tt.candidate, tt.self, got, tt.want)
			}
		})
	}
}

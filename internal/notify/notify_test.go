package notify

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type sent struct{ title, message string }

func captureDesktop(t *testing.T, err error) *[]sent {
	t.Helper()
	var calls []sent
	prev := send
	send = func(title, message string) error {
		calls = append(calls, sent{title, message})
		return err
	}
	t.Cleanup(func() { send = prev })
	return &calls
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestDesktopNotifier(t *testing.T) {
	calls := captureDesktop(t, nil)
	desktop := Desktop{}

	desktop.RecordingStarted()
	desktop.RecordingEnded()
	desktop.Transcribing()
	desktop.Aborted()
	desktop.Error("test error message")
	desktop.Notify("Test Title", "Test Message")

	want := []sent{
		{"whspr", "Recording Started"},
		{"whspr", "Recording Ended"},
		{"whspr", "Transcribing..."},
		{"whspr", "Aborted"},
		{"whspr Error", "test error message"},
		{"Test Title", "Test Message"},
	}
	if len(*calls) != len(want) {
		t.Fatalf("got %d notifications, want %d", len(*calls), len(want))
	}
	for i, w := range want {
		if (*calls)[i] != w {
			t.Errorf("notification %d = %+v, want %+v", i, (*calls)[i], w)
		}
	}
}

func TestDesktopNotifierFailureIsLogged(t *testing.T) {
	captureDesktop(t, errors.New("no dbus"))
	buf := captureLog(t)

	Desktop{}.Error("boom")
	if !strings.Contains(buf.String(), "no dbus") {
		t.Errorf("send failure should be logged, got: %s", buf.String())
	}
}

func TestLogNotifier(t *testing.T) {
	buf := captureLog(t)
	logNotifier := Log{}

	tests := []struct {
		name   string
		call   func()
		expect []string
	}{
		{"RecordingStarted", logNotifier.RecordingStarted, []string{"whspr", "Recording Started"}},
		{"RecordingEnded", logNotifier.RecordingEnded, []string{"Recording Ended"}},
		{"Transcribing", logNotifier.Transcribing, []string{"Transcribing"}},
		{"Aborted", logNotifier.Aborted, []string{"Aborted"}},
		{"Error", func() { logNotifier.Error("test error message") }, []string{"whspr Error", "test error message", `"level":"error"`}},
		{"Notify", func() { logNotifier.Notify("Test Title", "Test Message") }, []string{"Test Title", "Test Message"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.call()
			out := buf.String()
			for _, e := range tt.expect {
				if !strings.Contains(out, e) {
					t.Errorf("log output should contain %q, got: %s", e, out)
				}
			}
			if !strings.Contains(out, `"component":"notify"`) {
				t.Errorf("missing component field: %s", out)
			}
		})
	}
}

func TestNopNotifier(t *testing.T) {
	calls := captureDesktop(t, nil)
	nop := Nop{}

	nop.RecordingStarted()
	nop.RecordingEnded()
	nop.Transcribing()
	nop.Aborted()
	nop.Error("test message")
	nop.Notify("title", "message")

	if len(*calls) != 0 {
		t.Error("Nop must not send anything")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    string
		enabled bool
		want    Notifier
	}{
		{"desktop", true, Desktop{}},
		{"", true, Desktop{}},
		{"log", true, Log{}},
		{"none", true, Nop{}},
		{"desktop", false, Nop{}},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := New(tt.kind, tt.enabled); got != tt.want {
				t.Errorf("New(%q, %v) = %T, want %T", tt.kind, tt.enabled, got, tt.want)
			}
		})
	}
}

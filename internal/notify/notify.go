package notify

import (
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog/log"
)

const appName = "whspr"

type Notifier interface {
	RecordingStarted()
	RecordingEnded()
	Transcribing()
	Aborted()
	Error(msg string)
	Notify(title, message string)
}

// New returns the notifier for a notifications.type value; unknown or
// disabled kinds get Nop.
func New(kind string, enabled bool) Notifier {
	if !enabled {
		return Nop{}
	}
	switch kind {
	case "desktop", "":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}

// send is replaced in tests.
var send = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

type Desktop struct{}

func (d Desktop) RecordingStarted() { d.Notify(appName, "Recording Started") }
func (d Desktop) RecordingEnded()   { d.Notify(appName, "Recording Ended") }
func (d Desktop) Transcribing()     { d.Notify(appName, "Transcribing...") }
func (d Desktop) Aborted()          { d.Notify(appName, "Aborted") }

func (Desktop) Error(msg string) {
	if err := send(appName+" Error", msg); err != nil {
		log.Warn().Str("component", "notify").Err(err).Msg("failed to send error notification")
	}
}

func (Desktop) Notify(title, message string) {
	if err := send(title, message); err != nil {
		log.Warn().Str("component", "notify").Err(err).Msg("failed to send notification")
	}
}

// Log writes notifications to the structured log instead of the desktop.
type Log struct{}

func (l Log) RecordingStarted() { l.Notify(appName, "Recording Started") }
func (l Log) RecordingEnded()   { l.Notify(appName, "Recording Ended") }
func (l Log) Transcribing()     { l.Notify(appName, "Transcribing") }
func (l Log) Aborted()          { l.Notify(appName, "Aborted") }

func (Log) Error(msg string) {
	log.Error().Str("component", "notify").Msgf("%s Error: %s", appName, msg)
}

func (Log) Notify(title, message string) {
	log.Info().Str("component", "notify").Str("title", title).Msg(message)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingStarted()     {}
func (Nop) RecordingEnded()       {}
func (Nop) Transcribing()         {}
func (Nop) Aborted()              {}
func (Nop) Error(string)          {}
func (Nop) Notify(string, string) {}

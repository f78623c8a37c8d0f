package pipeline

import "errors"

// Stage names the part of a session that failed.
type Stage string

const (
	StageAudio         Stage = "audio"
	StageModel         Stage = "model"
	StageTranscription Stage = "transcription"
	StageDelivery      Stage = "delivery"
)

// StageError is returned by Run for failures that end a session with a
// non-zero exit.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return string(e.Stage) + " failed"
	}
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStage reports whether err is a StageError for stage.
func IsStage(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}

package transcriber

import "errors"

var (
	ErrModelNotFound  = errors.New("model file not found")
	ErrBinaryNotFound = errors.New("whisper-cli not found: install whisper.cpp first")
	ErrMissingAPIKey  = errors.New("OpenAI API key required")
)

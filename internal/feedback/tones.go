package feedback

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const toneRate = 44100

// tone describes a short cue as consecutive sine segments.
type tone struct {
	name    string
	freqs   []float64
	segment time.Duration
}

var (
	startTone = tone{name: "start.wav", freqs: []float64{660, 880}, segment: 70 * time.Millisecond}
	stopTone  = tone{name: "stop.wav", freqs: []float64{880, 660}, segment: 70 * time.Millisecond}
)

// ensureTone writes the tone into dir unless it already exists and returns its path.
func ensureTone(dir string, t tone) (string, error) {
	path := filepath.Join(dir, t.name)
	if info, err := os.Stat(path); err == nil && info.Size() > 44 {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create sound dir: %w", err)
	}
	if err := writeTone(path, t); err != nil {
		return "", err
	}
	return path, nil
}

func writeTone(path string, t tone) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), t.name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create tone file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := wav.NewEncoder(tmp, toneRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: toneRate},
		SourceBitDepth: 16,
		Data:           synthesize(t),
	}
	if err := enc.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("encode tone: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finalize tone: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func synthesize(t tone) []int {
	per := int(float64(toneRate) * t.segment.Seconds())
	fade := per / 10
	out := make([]int, 0, per*len(t.freqs))

	for _, freq := range t.freqs {
		for i := 0; i < per; i++ {
			env := 1.0
			if i < fade {
				env = float64(i) / float64(fade)
			} else if i > per-fade {
				env = float64(per-i) / float64(fade)
			}
			v := 0.3 * env * math.Sin(2*math.Pi*freq*float64(i)/toneRate)
			out = append(out, int(v*math.MaxInt16))
		}
	}
	return out
}

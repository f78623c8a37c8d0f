package feedback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// players are tried in this order when Config.Player is empty
var defaultPlayers = []string{"pw-play", "paplay", "aplay"}

type Config struct {
	Enabled    bool
	StartSound string // custom file; empty uses the built-in tone
	StopSound  string
	Player     string
	Timeout    time.Duration
	CacheDir   string
}

func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Timeout: 2 * time.Second,
	}
}

// Player plays the start and stop cues. Both calls block until the player
// process exits or the timeout elapses.
type Player struct {
	config Config
	log    zerolog.Logger

	once     sync.Once
	bin      string
	binErr   error
	toneOnce sync.Once
	toneDir  string
}

func NewPlayer(config Config) *Player {
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	return &Player{
		config: config,
		log:    log.With().Str("component", "feedback").Logger(),
	}
}

func (p *Player) PlayStart(ctx context.Context) error {
	return p.play(ctx, p.config.StartSound, startTone)
}

func (p *Player) PlayStop(ctx context.Context) error {
	return p.play(ctx, p.config.StopSound, stopTone)
}

func (p *Player) play(ctx context.Context, custom string, builtin tone) error {
	if !p.config.Enabled {
		return nil
	}

	path, err := p.resolveSound(custom, builtin)
	if err != nil {
		return err
	}

	bin, err := p.player()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, bin, path)
	if out, err := cmd.CombinedOutput(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out after %v", filepath.Base(bin), p.config.Timeout)
		}
		return fmt.Errorf("%s %s: %w: %s", filepath.Base(bin), path, err, out)
	}
	p.log.Debug().Str("sound", path).Dur("took", time.Since(start)).Msg("cue played")
	return nil
}

func (p *Player) resolveSound(custom string, builtin tone) (string, error) {
	if custom != "" {
		path := expandHome(custom)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("sound file: %w", err)
		}
		return path, nil
	}

	p.toneOnce.Do(func() {
		dir := p.config.CacheDir
		if dir == "" {
			if cache, err := os.UserCacheDir(); err == nil {
				dir = filepath.Join(cache, "whspr", "sounds")
			} else {
				dir = filepath.Join(os.TempDir(), "whspr-sounds")
			}
		}
		p.toneDir = dir
	})
	return ensureTone(p.toneDir, builtin)
}

func (p *Player) player() (string, error) {
	p.once.Do(func() {
		if p.config.Player != "" {
			p.bin, p.binErr = exec.LookPath(p.config.Player)
			return
		}
		for _, name := range defaultPlayers {
			if bin, err := exec.LookPath(name); err == nil {
				p.bin = bin
				return
			}
		}
		p.binErr = fmt.Errorf("no audio player found (tried %v)", defaultPlayers)
	})
	return p.bin, p.binErr
}

func expandHome(path string) string {
	if len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Package speech synthesizes chat messages to voice notes for opted-in
// users while a group call is running.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mealbot/pkg/logx"
)

// Engine is one external synthesis backend. Args builds the argv tail for
// writing text to a wav file at out.
type Engine struct {
	Name string
	Args func(out, text string) []string
}

// DefaultEngines is the preference-ordered backend chain: pico2wave sounds
// more natural, espeak-ng is the widely packaged fallback.
func DefaultEngines() []Engine {
	return []Engine{
		{Name: "pico2wave", Args: func(out, text string) []string { return []string{"-w", out, text} }},
		{Name: "espeak-ng", Args: func(out, text string) []string { return []string{"-w", out, text} }},
	}
}

// Synthesizer renders text to wav files via the first working engine.
type Synthesizer struct {
	engines []Engine
	workDir string
	timeout time.Duration
	log     logx.Logger
}

func NewSynthesizer(engines []Engine, workDir string, timeout time.Duration, log logx.Logger) *Synthesizer {
	if len(engines) == 0 {
		engines = DefaultEngines()
	}
	if strings.TrimSpace(workDir) == "" {
		workDir = os.TempDir()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Synthesizer{engines: engines, workDir: workDir, timeout: timeout, log: log}
}

// Synthesize writes text to a fresh wav file and returns its path. The
// caller owns the file and must remove it.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	out := filepath.Join(s.workDir, fmt.Sprintf("mealbot_tts_%s.wav", uuid.NewString()))

	var errs []error
	for _, eng := range s.engines {
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		cmd := exec.CommandContext(runCtx, eng.Name, eng.Args(out, text)...)
		err := cmd.Run()
		cancel()
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", eng.Name, err))
		s.log.Debug("tts engine failed", logx.String("engine", eng.Name), logx.Err(err))
	}

	// A failed engine may still have written a partial file.
	_ = os.Remove(out)
	return "", fmt.Errorf("no tts engine available: %w", errors.Join(errs...))
}

package tts

import (
	"context"
	"fmt"
	"os/exec"
)

// LocalSynthesizer shells out to the host's speech command. It is the
// fallback when the remote transport fails; on hosts with no speech command
// it reports unavailable and the caller stays silent.
type LocalSynthesizer struct {
	command string
}

var speechCommands = []string{"say", "espeak-ng", "espeak"}

func NewLocalSynthesizer() *LocalSynthesizer {
	for _, c := range speechCommands {
		if _, err := exec.LookPath(c); err == nil {
			return &LocalSynthesizer{command: c}
		}
	}
	return &LocalSynthesizer{}
}

func (l *LocalSynthesizer) Available() bool { return l.command != "" }

func (l *LocalSynthesizer) Speak(ctx context.Context, text string) error {
	if l.command == "" {
		return fmt.Errorf("local tts: no speech command on host")
	}
	if text == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, l.command, text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("local tts: %s: %w", l.command, err)
	}
	return nil
}

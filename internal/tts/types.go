package tts

import "context"

// Synthesizer produces playable audio for the given text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// LocalSpeaker is the platform's own speech-synthesis capability. It speaks
// host-side rather than returning audio.
type LocalSpeaker interface {
	Available() bool
	Speak(ctx context.Context, text string) error
}

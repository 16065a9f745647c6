package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Engine is the speech transport: primary remote synthesis with a local
// fallback. Synthesize returns remote audio when the primary path works; a
// nil payload with nil error means the local fallback already spoke the text
// host-side. An error means neither path produced speech.
type Engine struct {
	primary Synthesizer
	local   LocalSpeaker
	log     zerolog.Logger
}

func NewEngine(primary Synthesizer, local LocalSpeaker, log zerolog.Logger) *Engine {
	return &Engine{primary: primary, local: local, log: log}
}

func (e *Engine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if e.primary != nil {
		audio, err := e.primary.Synthesize(ctx, text)
		if err == nil && len(audio) > 0 {
			return audio, nil
		}
		if err != nil {
			e.log.Warn().Err(err).Msg("remote tts failed, trying local fallback")
		}
	}
	if e.local != nil && e.local.Available() {
		if err := e.local.Speak(ctx, text); err != nil {
			e.log.Warn().Err(err).Msg("local tts fallback failed")
			return nil, err
		}
		return nil, nil
	}
	return nil, fmt.Errorf("tts: no synthesis path available")
}

// Announcer speaks store notifications. Synthesized audio goes to the sink
// (typically a WebSocket broadcast); failures never reach the caller.
type Announcer struct {
	engine *Engine
	sink   func(audio []byte)
	log    zerolog.Logger
}

func NewAnnouncer(engine *Engine, sink func(audio []byte), log zerolog.Logger) *Announcer {
	return &Announcer{engine: engine, sink: sink, log: log}
}

func (a *Announcer) Announce(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	audio, err := a.engine.Synthesize(ctx, text)
	if err != nil {
		a.log.Debug().Err(err).Str("text", text).Msg("announcement dropped")
		return
	}
	if len(audio) > 0 && a.sink != nil {
		a.sink(audio)
	}
}

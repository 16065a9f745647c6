package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeSynth struct {
	audio []byte
	err   error
	calls int
	last  string
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.calls++
	f.last = text
	return f.audio, f.err
}

type fakeLocal struct {
	available bool
	err       error
	calls     int
	last      string
}

func (f *fakeLocal) Available() bool { return f.available }
func (f *fakeLocal) Speak(_ context.Context, text string) error {
	f.calls++
	f.last = text
	return f.err
}

func TestEngine_PrimarySucceeds(t *testing.T) {
	primary := &fakeSynth{audio: []byte("mp3")}
	local := &fakeLocal{available: true}
	e := NewEngine(primary, local, zerolog.Nop())
	audio, err := e.Synthesize(context.Background(), "hello")
	if err != nil || string(audio) != "mp3" {
		t.Fatalf("unexpected result: %q %v", audio, err)
	}
	if local.calls != 0 {
		t.Fatalf("fallback must not run when primary succeeds")
	}
}

func TestEngine_FallsBackToLocalWithSameText(t *testing.T) {
	primary := &fakeSynth{err: errors.New("network down")}
	local := &fakeLocal{available: true}
	e := NewEngine(primary, local, zerolog.Nop())
	audio, err := e.Synthesize(context.Background(), "status report")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audio != nil {
		t.Fatalf("expected nil audio on local fallback")
	}
	if local.calls != 1 || local.last != "status report" {
		t.Fatalf("expected local fallback with same text, got %d calls, %q", local.calls, local.last)
	}
}

func TestEngine_SilentWhenNothingWorks(t *testing.T) {
	primary := &fakeSynth{err: errors.New("boom")}
	local := &fakeLocal{available: false}
	e := NewEngine(primary, local, zerolog.Nop())
	if _, err := e.Synthesize(context.Background(), "hi"); err == nil {
		t.Fatalf("expected error when no path is available")
	}
}

func TestAnnouncer_SinksAudio(t *testing.T) {
	primary := &fakeSynth{audio: []byte("chime")}
	var got []byte
	a := NewAnnouncer(NewEngine(primary, nil, zerolog.Nop()), func(audio []byte) { got = audio }, zerolog.Nop())
	a.Announce("New violation detected")
	if string(got) != "chime" {
		t.Fatalf("expected sink to receive audio, got %q", got)
	}
	if primary.last != "New violation detected" {
		t.Fatalf("unexpected announcement text %q", primary.last)
	}
}

func TestAnnouncer_SwallowsFailure(t *testing.T) {
	primary := &fakeSynth{err: errors.New("down")}
	a := NewAnnouncer(NewEngine(primary, &fakeLocal{}, zerolog.Nop()), nil, zerolog.Nop())
	// Must not panic or propagate.
	a.Announce("New violation detected")
}

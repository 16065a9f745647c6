package assistant

import (
	"context"
	"errors"
	"time"
)

// LLM generates a single reply for a user message.
type LLM interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Speech is the speech transport with fallback. A nil payload with nil error
// means the text was already spoken through the local fallback.
type Speech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Recognizer is the speech-capture capability. Results arrive through the
// session's OnTranscript/OnListenEnd, mirroring the capture device's events.
type Recognizer interface {
	Supported() bool
	Start(ctx context.Context) error
	Abort()
}

// Player delivers synthesized audio to the listener. Play blocks until
// playback ends or ctx is cancelled; Stop drops any in-flight audio.
type Player interface {
	Play(ctx context.Context, audio []byte) error
	Stop()
}

// Notifier receives session updates for the UI.
type Notifier interface {
	MessageAdded(Message)
	StateChanged(State)
}

// Message is one chat-log entry. The log is transient and dies with the
// session.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the observable assistant state.
type State struct {
	Listening        bool   `json:"listening"`
	Speaking         bool   `json:"speaking"`
	ConversationMode bool   `json:"conversationMode"`
	Muted            bool   `json:"muted"`
	Input            string `json:"input"`
}

var (
	// ErrVoiceUnsupported signals the host has no speech-recognition
	// capability; the control stays disabled.
	ErrVoiceUnsupported = errors.New("assistant: speech recognition not supported")
	// ErrClosed is returned by operations on a torn-down session.
	ErrClosed = errors.New("assistant: session closed")
	// ErrBusy is returned when a submit races active playback.
	ErrBusy = errors.New("assistant: currently speaking")
)

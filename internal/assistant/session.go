package assistant

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	greeting      = "Hello! I'm your SmartTrafficAI assistant. How can I help you today?"
	fallbackReply = "There was an error processing your request."

	// Delay before conversation mode re-opens the microphone after the
	// assistant finishes speaking.
	defaultResumeDelay = 500 * time.Millisecond
)

// Session orchestrates voice capture, chat and speech playback for one
// assistant overlay. All transitions run under one mutex; the blocking work
// (chat request, synthesis, playback) happens outside it.
type Session struct {
	llm        LLM
	speech     Speech
	recognizer Recognizer
	player     Player
	notifier   Notifier
	log        zerolog.Logger

	// ResumeDelay overrides the conversation-mode resume delay. Test hook.
	ResumeDelay time.Duration

	mu               sync.Mutex
	listening        bool
	speaking         bool
	conversationMode bool
	muted            bool
	input            string
	messages         []Message
	playCancel       context.CancelFunc
	playGen          uint64
	resumeTimer      *time.Timer
	closed           bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(llm LLM, speech Speech, recognizer Recognizer, player Player, notifier Notifier, log zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		llm:         llm,
		speech:      speech,
		recognizer:  recognizer,
		player:      player,
		notifier:    notifier,
		log:         log,
		ResumeDelay: defaultResumeDelay,
		ctx:         ctx,
		cancel:      cancel,
	}
	s.appendMessage(greeting, false)
	return s
}

// Messages returns a snapshot of the chat log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the observable state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		Listening:        s.listening,
		Speaking:         s.speaking,
		ConversationMode: s.conversationMode,
		Muted:            s.muted,
		Input:            s.input,
	}
}

// SetInput replaces the pending input text.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	state := s.stateLocked()
	s.mu.Unlock()
	s.notifyState(state)
}

// StartListening opens a capture session. Without a supported recognizer the
// activation is rejected and the state is unchanged.
func (s *Session) StartListening() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.recognizer == nil || !s.recognizer.Supported() {
		s.mu.Unlock()
		return ErrVoiceUnsupported
	}
	if s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = true
	state := s.stateLocked()
	s.mu.Unlock()

	if err := s.recognizer.Start(s.ctx); err != nil {
		s.mu.Lock()
		s.listening = false
		state = s.stateLocked()
		s.mu.Unlock()
		s.notifyState(state)
		return err
	}
	s.notifyState(state)
	return nil
}

// StopListening aborts the capture session.
func (s *Session) StopListening() {
	s.mu.Lock()
	wasListening := s.listening
	s.listening = false
	state := s.stateLocked()
	s.mu.Unlock()
	if wasListening && s.recognizer != nil {
		s.recognizer.Abort()
	}
	s.notifyState(state)
}

// OnTranscript delivers a recognized transcript. In conversation mode the
// transcript submits immediately instead of waiting for an explicit send.
func (s *Session) OnTranscript(text string) {
	text = strings.TrimSpace(text)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.listening = false
	s.input = text
	auto := s.conversationMode && text != ""
	state := s.stateLocked()
	s.mu.Unlock()
	s.notifyState(state)
	if auto {
		go func() {
			if err := s.Submit(text); err != nil {
				s.log.Debug().Err(err).Msg("auto submit skipped")
			}
		}()
	}
}

// OnListenEnd marks the capture session over without a transcript
// (recognition end or error).
func (s *Session) OnListenEnd() {
	s.mu.Lock()
	s.listening = false
	state := s.stateLocked()
	s.mu.Unlock()
	s.notifyState(state)
}

// Submit sends text (or the pending input when empty) to the chat transport
// and speaks the reply. Transport failure yields the fixed fallback line,
// spoken through the same path.
func (s *Session) Submit(text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.speaking {
		s.mu.Unlock()
		return ErrBusy
	}
	if text == "" {
		text = s.input
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.mu.Unlock()
		return nil
	}
	s.input = ""
	s.mu.Unlock()

	s.appendMessage(text, true)
	s.notifyState(s.State())

	// Deliberately not tied to the session context: closing the overlay does
	// not cancel an in-flight chat request, the late reply is just dropped.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	reply, err := s.llm.Generate(ctx, text)
	cancel()
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			s.log.Warn().Err(err).Msg("chat transport failed")
		}
		reply = fallbackReply
	}

	s.mu.Lock()
	if s.closed {
		// Overlay is gone; a late reply must be a no-op.
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.appendMessage(reply, false)
	s.speak(reply)
	return nil
}

// speak plays the reply, enforcing at most one active playback.
func (s *Session) speak(text string) {
	s.mu.Lock()
	if s.closed || s.muted {
		s.mu.Unlock()
		return
	}
	// Stop-before-start: at most one audio stream at a time.
	if s.playCancel != nil {
		s.playCancel()
		s.player.Stop()
	}
	playCtx, cancel := context.WithCancel(s.ctx)
	s.playCancel = cancel
	s.playGen++
	gen := s.playGen
	s.speaking = true
	state := s.stateLocked()
	s.mu.Unlock()
	s.notifyState(state)

	audio, err := s.speech.Synthesize(playCtx, text)
	if err != nil {
		s.log.Warn().Err(err).Msg("speech transport silent")
	} else if len(audio) > 0 {
		if perr := s.player.Play(playCtx, audio); perr != nil {
			s.log.Debug().Err(perr).Msg("playback ended early")
		}
	}
	interrupted := playCtx.Err() != nil
	cancel()

	s.mu.Lock()
	if s.playGen != gen {
		// Superseded by a newer playback; its owner manages the state.
		s.mu.Unlock()
		return
	}
	s.speaking = false
	s.playCancel = nil
	resume := s.conversationMode && !s.listening && !s.closed && !interrupted
	if resume {
		if s.resumeTimer != nil {
			s.resumeTimer.Stop()
		}
		s.resumeTimer = time.AfterFunc(s.ResumeDelay, func() {
			if err := s.StartListening(); err != nil {
				s.log.Debug().Err(err).Msg("conversation resume skipped")
			}
		})
	}
	state = s.stateLocked()
	s.mu.Unlock()
	s.notifyState(state)
}

// SetConversationMode toggles the hands-free loop. Disabling it cancels a
// pending resume.
func (s *Session) SetConversationMode(on bool) {
	s.mu.Lock()
	s.conversationMode = on
	if !on && s.resumeTimer != nil {
		s.resumeTimer.Stop()
		s.resumeTimer = nil
	}
	state := s.stateLocked()
	s.mu.Unlock()
	s.notifyState(state)
}

// SetMuted toggles playback suppression. Muting stops in-flight audio
// immediately.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	if muted && s.playCancel != nil {
		s.playCancel()
		s.playCancel = nil
		s.player.Stop()
		s.speaking = false
	}
	state := s.stateLocked()
	s.mu.Unlock()
	s.notifyState(state)
}

// Close tears the session down: capture aborted, playback stopped, pending
// resume cancelled. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listening = false
	s.speaking = false
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
		s.resumeTimer = nil
	}
	if s.playCancel != nil {
		s.playCancel()
		s.playCancel = nil
	}
	s.mu.Unlock()

	if s.recognizer != nil {
		s.recognizer.Abort()
	}
	if s.player != nil {
		s.player.Stop()
	}
	s.cancel()
}

func (s *Session) appendMessage(text string, isUser bool) {
	msg := Message{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
		Text:      text,
		IsUser:    isUser,
		Timestamp: time.Now().UTC(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	if s.notifier != nil {
		s.notifier.MessageAdded(msg)
	}
}

func (s *Session) notifyState(state State) {
	if s.notifier != nil {
		s.notifier.StateChanged(state)
	}
}

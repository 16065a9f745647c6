package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/learnerguy001/Smart-Traffic-main/internal/assistant"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	CheckOrigin: func(r *http.Request) bool {
		// Allow any origin for demo use; restrict in production
		return true
	},
}

// wsFrame is the single message shape both sockets speak.
type wsFrame struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`
	On   bool   `json:"on,omitempty"`

	VoiceSupported bool `json:"voiceSupported,omitempty"`

	Audio     string               `json:"audio,omitempty"` // base64
	Message   *assistant.Message   `json:"message,omitempty"`
	State     *assistant.State     `json:"state,omitempty"`
	Violation *json.RawMessage     `json:"violation,omitempty"`
}

// wsConn serializes writes; gorilla allows one concurrent writer only.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// hub tracks live-feed sockets for announcement broadcast.
type hub struct {
	mu    sync.Mutex
	conns map[*wsConn]struct{}
}

func newHub() *hub { return &hub{conns: make(map[*wsConn]struct{})} }

func (h *hub) add(c *wsConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *wsConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

func (h *hub) broadcast(frame wsFrame) {
	h.mu.Lock()
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		_ = c.writeJSON(frame)
	}
}

func (h *hub) broadcastAudio(audio []byte) {
	h.broadcast(wsFrame{Type: "announcement", Audio: base64.StdEncoding.EncodeToString(audio)})
}

// serveFeed pushes every newly added violation to the client, plus spoken
// announcements.
func (s *Server) serveFeed(c echo.Context) error {
	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}
	wc := &wsConn{conn: conn}
	s.hub.add(wc)
	defer func() {
		s.hub.remove(wc)
		_ = conn.Close()
	}()

	events, cancel := s.deps.Store.Subscribe(16)
	defer cancel()

	// Read pump: only there to observe the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return nil
		case <-s.deps.BaseCtx.Done():
			return nil
		case v, ok := <-events:
			if !ok {
				return nil
			}
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			msg := json.RawMessage(raw)
			if err := wc.writeJSON(wsFrame{Type: "violation", Violation: &msg}); err != nil {
				return nil
			}
		}
	}
}

// wsRecognizer asks the browser to run speech capture and relays its events.
type wsRecognizer struct {
	conn      *wsConn
	supported bool
}

func (r *wsRecognizer) Supported() bool { return r.supported }

func (r *wsRecognizer) Start(context.Context) error {
	return r.conn.writeJSON(wsFrame{Type: "listen-start"})
}

func (r *wsRecognizer) Abort() {
	_ = r.conn.writeJSON(wsFrame{Type: "listen-abort"})
}

// wsPlayer ships synthesized audio to the browser and waits for its
// playback-ended ack.
type wsPlayer struct {
	conn *wsConn

	mu    sync.Mutex
	ended chan struct{}
}

func (p *wsPlayer) Play(ctx context.Context, audio []byte) error {
	p.mu.Lock()
	ended := make(chan struct{})
	p.ended = ended
	p.mu.Unlock()

	frame := wsFrame{Type: "audio", Audio: base64.StdEncoding.EncodeToString(audio)}
	if err := p.conn.writeJSON(frame); err != nil {
		return err
	}
	select {
	case <-ended:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *wsPlayer) Stop() {
	_ = p.conn.writeJSON(wsFrame{Type: "audio-stop"})
	p.ack()
}

func (p *wsPlayer) ack() {
	p.mu.Lock()
	if p.ended != nil {
		close(p.ended)
		p.ended = nil
	}
	p.mu.Unlock()
}

// wsNotifier pushes session updates to the client.
type wsNotifier struct {
	conn *wsConn
}

func (n *wsNotifier) MessageAdded(m assistant.Message) {
	_ = n.conn.writeJSON(wsFrame{Type: "message", Message: &m})
}

func (n *wsNotifier) StateChanged(st assistant.State) {
	_ = n.conn.writeJSON(wsFrame{Type: "state", State: &st})
}

// serveAssistant runs one conversation session per socket. The first frame
// is expected to be a hello carrying the client's voice capability.
func (s *Server) serveAssistant(c echo.Context) error {
	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}
	wc := &wsConn{conn: conn}
	defer func() { _ = conn.Close() }()

	voiceSupported := false
	var first *wsFrame
	if frame, err := readFrame(conn); err == nil {
		if frame.Type == "hello" {
			voiceSupported = frame.VoiceSupported
		} else {
			first = &frame
		}
	} else {
		return nil
	}

	recognizer := &wsRecognizer{conn: wc, supported: voiceSupported}
	player := &wsPlayer{conn: wc}
	notifier := &wsNotifier{conn: wc}
	session := assistant.NewSession(s.deps.LLM, s.deps.Speech, recognizer, player, notifier, s.deps.Log)
	defer session.Close()

	notifier.StateChanged(session.State())

	if first != nil {
		s.dispatch(session, player, wc, *first)
	}
	for {
		frame, err := readFrame(conn)
		if err != nil {
			return nil
		}
		if frame.Type == "bye" {
			return nil
		}
		s.dispatch(session, player, wc, frame)
	}
}

func (s *Server) dispatch(session *assistant.Session, player *wsPlayer, wc *wsConn, frame wsFrame) {
	switch frame.Type {
	case "input":
		session.SetInput(frame.Text)
	case "send":
		text := frame.Text
		go func() {
			if err := session.Submit(text); err != nil && !errors.Is(err, assistant.ErrClosed) {
				s.deps.Log.Debug().Err(err).Msg("submit rejected")
			}
		}()
	case "listen-start":
		if err := session.StartListening(); err != nil {
			notice := "Could not start voice capture."
			if errors.Is(err, assistant.ErrVoiceUnsupported) {
				notice = "Speech recognition is not supported in your browser."
			}
			_ = wc.writeJSON(wsFrame{Type: "notice", Text: notice})
		}
	case "listen-stop":
		session.StopListening()
	case "transcript":
		session.OnTranscript(frame.Text)
	case "listen-end":
		session.OnListenEnd()
	case "mute":
		session.SetMuted(frame.On)
	case "conversation":
		session.SetConversationMode(frame.On)
	case "audio-ended":
		player.ack()
	default:
		if !strings.EqualFold(frame.Type, "ping") {
			s.deps.Log.Debug().Str("type", frame.Type).Msg("unknown assistant frame")
		}
	}
}

func readFrame(conn *websocket.Conn) (wsFrame, error) {
	var frame wsFrame
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return frame, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		return frame, nil
	}
}

package httpserver

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/learnerguy001/Smart-Traffic-main/internal/violation"
)

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil drains frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) wsFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %q frame: %v", wantType, err)
		}
		if frame.Type == wantType {
			return frame
		}
	}
}

func TestFeedSocket_PushesViolationsAndAnnouncements(t *testing.T) {
	srv, store := newTestServer(t)
	ts := httptest.NewServer(srv.Echo)
	defer ts.Close()

	conn := dialWS(t, ts, "/ws/feed")
	time.Sleep(100 * time.Millisecond) // let the handler subscribe

	store.Add(violation.Violation{
		Location: "Test Junction", Speed: 70, SpeedLimit: 30,
		LicensePlate: "WS-0001", Vehicle: "Test Car", Status: violation.StatusPending,
	})
	frame := readUntil(t, conn, "violation")
	if frame.Violation == nil || !strings.Contains(string(*frame.Violation), "WS-0001") {
		t.Fatalf("unexpected violation frame: %+v", frame)
	}

	srv.AnnouncementSink()([]byte("spoken"))
	frame = readUntil(t, conn, "announcement")
	if frame.Audio == "" {
		t.Fatalf("announcement frame carried no audio")
	}
}

func TestAssistantSocket_TextChat(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Echo)
	defer ts.Close()

	conn := dialWS(t, ts, "/ws/assistant")
	if err := conn.WriteJSON(wsFrame{Type: "hello"}); err != nil {
		t.Fatal(err)
	}

	greeting := readUntil(t, conn, "message")
	if greeting.Message == nil || greeting.Message.IsUser {
		t.Fatalf("expected assistant greeting first, got %+v", greeting)
	}
	readUntil(t, conn, "state")

	if err := conn.WriteJSON(wsFrame{Type: "send", Text: "how many violations?"}); err != nil {
		t.Fatal(err)
	}
	user := readUntil(t, conn, "message")
	if user.Message == nil || !user.Message.IsUser {
		t.Fatalf("expected echoed user message, got %+v", user)
	}

	reply := readUntil(t, conn, "message")
	if reply.Message == nil || reply.Message.IsUser || reply.Message.Text != "hello" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	audio := readUntil(t, conn, "audio")
	if audio.Audio == "" {
		t.Fatalf("audio frame carried no payload")
	}
	if err := conn.WriteJSON(wsFrame{Type: "audio-ended"}); err != nil {
		t.Fatal(err)
	}
	_ = conn.WriteJSON(wsFrame{Type: "bye"})
}

func TestAssistantSocket_VoiceUnsupportedNotice(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Echo)
	defer ts.Close()

	conn := dialWS(t, ts, "/ws/assistant")
	if err := conn.WriteJSON(wsFrame{Type: "hello", VoiceSupported: false}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, "state")

	if err := conn.WriteJSON(wsFrame{Type: "listen-start"}); err != nil {
		t.Fatal(err)
	}
	notice := readUntil(t, conn, "notice")
	if !strings.Contains(notice.Text, "not supported") {
		t.Fatalf("unexpected notice: %q", notice.Text)
	}
}

func TestAssistantSocket_HandsFreeLoop(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Echo)
	defer ts.Close()

	conn := dialWS(t, ts, "/ws/assistant")
	if err := conn.WriteJSON(wsFrame{Type: "hello", VoiceSupported: true}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, "state")

	if err := conn.WriteJSON(wsFrame{Type: "conversation", On: true}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(wsFrame{Type: "listen-start"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, "listen-start")

	if err := conn.WriteJSON(wsFrame{Type: "transcript", Text: "any pending violations?"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(wsFrame{Type: "listen-end"}); err != nil {
		t.Fatal(err)
	}

	readUntil(t, conn, "audio")
	if err := conn.WriteJSON(wsFrame{Type: "audio-ended"}); err != nil {
		t.Fatal(err)
	}

	// After playback the session should re-open capture on its own.
	readUntil(t, conn, "listen-start")
}

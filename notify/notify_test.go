package notify

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/moyoez/sora-history-bot/types"
)

func TestHubBroadcast(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	router := gin.New()
	router.GET("/ws", HandleWS(hub))
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Len() != 1 {
		t.Fatalf("expected 1 registered client, got %d", hub.Len())
	}

	New(hub, "").Notify(VideoSent("a.mp4", 3, 9))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var got types.Notification
	if err := sonic.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Type != types.NotifyTypeVideoSent || got.Message != "a.mp4" {
		t.Errorf("unexpected notification %+v", got)
	}
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	n.Notify(VideoSent("a.mp4", 1, 1))
	New(nil, "").Notify(nil)
}

func TestSendToSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "notify")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "n.sock")

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()

	received := make(chan types.Notification, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		head := make([]byte, 4)
		if _, err := io.ReadFull(conn, head); err != nil {
			return
		}
		body := make([]byte, binary.LittleEndian.Uint32(head))
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		var n types.Notification
		_ = sonic.Unmarshal(body, &n)
		received <- n
		_, _ = conn.Write([]byte(`{"ok":true}`))
	}()

	user := &types.User{ID: 42, FirstName: "Ada"}
	if err := SendToSocket(path, UploadSaved("clip.mp4", 10, user)); err != nil {
		t.Fatalf("SendToSocket failed: %v", err)
	}
	select {
	case n := <-received:
		if n.Type != types.NotifyTypeUploadSaved || n.Message != "Ada saved clip.mp4" {
			t.Errorf("unexpected notification %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener received nothing")
	}
}

func TestSendToSocketMissing(t *testing.T) {
	err := SendToSocket(filepath.Join(t.TempDir(), "absent.sock"), UploadFailed("a.mp4", nil, errors.New("boom")))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

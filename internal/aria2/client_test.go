package aria2_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"sweeper/internal/aria2"
	"sweeper/internal/config"
	"sweeper/internal/logging"
	"sweeper/internal/services"
)

type rpcFrame struct {
	Version string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method,omitempty"`
	Params  []any  `json:"params,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// fakeServer answers tellStatus-style calls and can push notifications.
type fakeServer struct {
	t       *testing.T
	handler func(req rpcFrame) rpcFrame
	push    chan rpcFrame
	server  *httptest.Server
}

func newFakeServer(t *testing.T, handler func(req rpcFrame) rpcFrame) *fakeServer {
	t.Helper()
	fs := &fakeServer{t: t, handler: handler, push: make(chan rpcFrame, 8)}
	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		incoming := make(chan rpcFrame)
		go func() {
			defer close(incoming)
			for {
				_, data, err := conn.Read(ctx)
				if err != nil {
					return
				}
				var frame rpcFrame
				if err := json.Unmarshal(data, &frame); err != nil {
					continue
				}
				incoming <- frame
			}
		}()

		for {
			select {
			case frame, ok := <-incoming:
				if !ok {
					return
				}
				if fs.handler == nil {
					continue
				}
				reply := fs.handler(frame)
				reply.Version = "2.0"
				reply.ID = frame.ID
				body, _ := json.Marshal(reply)
				if err := conn.Write(ctx, websocket.MessageText, body); err != nil {
					return
				}
			case frame := <-fs.push:
				frame.Version = "2.0"
				body, _ := json.Marshal(frame)
				if err := conn.Write(ctx, websocket.MessageText, body); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(fs.server.Close)
	return fs
}

func (fs *fakeServer) config(t *testing.T) *config.Config {
	t.Helper()
	host, portStr, err := net.SplitHostPort(fs.server.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	cfg := config.Default()
	cfg.Aria2.Host = host
	cfg.Aria2.Port = port
	cfg.Aria2.Secret = "hunter2"
	cfg.Aria2.RequestTimeout = 5
	return &cfg
}

func dialTest(t *testing.T, fs *fakeServer) *aria2.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := aria2.Dial(ctx, fs.config(t), logging.NewNop())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestTellStatusCarriesSecretAndDecodes(t *testing.T) {
	var gotParams []any
	fs := newFakeServer(t, func(req rpcFrame) rpcFrame {
		if req.Method != "aria2.tellStatus" {
			return rpcFrame{Error: map[string]any{"code": -32601, "message": "unknown method"}}
		}
		gotParams = req.Params
		return rpcFrame{Result: map[string]any{
			"gid":    "abc123",
			"status": "complete",
			"dir":    "/downloads",
			"files":  []map[string]any{{"path": "/downloads/show.S01E02.mkv"}},
		}}
	})
	client := dialTest(t, fs)

	download, err := client.TellStatus(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("TellStatus: %v", err)
	}
	if download.GID != "abc123" || !download.Complete() {
		t.Fatalf("download = %+v", download)
	}
	if download.Name != "show.S01E02.mkv" {
		t.Fatalf("name = %q", download.Name)
	}
	if len(gotParams) == 0 || gotParams[0] != "token:hunter2" {
		t.Fatalf("expected secret as first param, got %v", gotParams)
	}
}

func TestTellStatusResolvesRelativePaths(t *testing.T) {
	fs := newFakeServer(t, func(req rpcFrame) rpcFrame {
		return rpcFrame{Result: map[string]any{
			"gid":    "abc123",
			"status": "complete",
			"dir":    "/downloads",
			"files":  []map[string]any{{"path": "release.part1.rar"}},
		}}
	})
	client := dialTest(t, fs)

	download, err := client.TellStatus(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("TellStatus: %v", err)
	}
	if len(download.Files) != 1 || download.Files[0] != "/downloads/release.part1.rar" {
		t.Fatalf("files = %v", download.Files)
	}
}

func TestTellStatusUnknownGID(t *testing.T) {
	fs := newFakeServer(t, func(req rpcFrame) rpcFrame {
		return rpcFrame{Error: map[string]any{"code": 1, "message": "GID not found"}}
	})
	client := dialTest(t, fs)

	_, err := client.TellStatus(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCompletionNotificationsReachEvents(t *testing.T) {
	fs := newFakeServer(t, nil)
	client := dialTest(t, fs)

	fs.push <- rpcFrame{Method: "aria2.onDownloadComplete", Params: []any{map[string]any{"gid": "g1"}}}
	fs.push <- rpcFrame{Method: "aria2.onBtDownloadComplete", Params: []any{map[string]any{"gid": "g2"}}}

	var got []string
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case gid, ok := <-client.Events():
			if !ok {
				t.Fatalf("events closed early, got %v", got)
			}
			got = append(got, gid)
		case <-timeout:
			t.Fatalf("timed out, got %v", got)
		}
	}
	if got[0] != "g1" || got[1] != "g2" {
		t.Fatalf("events = %v", got)
	}
}

func TestDownloadsMergesAllSets(t *testing.T) {
	fs := newFakeServer(t, func(req rpcFrame) rpcFrame {
		switch req.Method {
		case "aria2.tellActive":
			return rpcFrame{Result: []map[string]any{{"gid": "a", "status": "active"}}}
		case "aria2.tellWaiting":
			return rpcFrame{Result: []map[string]any{}}
		case "aria2.tellStopped":
			return rpcFrame{Result: []map[string]any{
				{"gid": "s1", "status": "complete", "files": []map[string]any{{"path": "/d/release.part1.rar"}}},
				{"gid": "s2", "status": "complete", "files": []map[string]any{{"path": "/d/release.part2.rar"}}},
			}}
		}
		return rpcFrame{Error: map[string]any{"code": -32601, "message": "unknown method"}}
	})
	client := dialTest(t, fs)

	downloads, err := client.Downloads(context.Background())
	if err != nil {
		t.Fatalf("Downloads: %v", err)
	}
	if len(downloads) != 3 {
		t.Fatalf("len = %d, want 3", len(downloads))
	}
	if downloads[1].Name != "release.part1.rar" {
		t.Fatalf("name = %q", downloads[1].Name)
	}
}

func TestEventsCloseWhenServerDrops(t *testing.T) {
	fs := newFakeServer(t, nil)
	client := dialTest(t, fs)

	fs.server.CloseClientConnections()

	select {
	case _, ok := <-client.Events():
		if ok {
			t.Fatal("expected closed events channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events channel did not close")
	}
	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not signalled")
	}
}

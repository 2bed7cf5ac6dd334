package aria2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"sweeper/internal/config"
	"sweeper/internal/logging"
	"sweeper/internal/services"
)

// statusKeys limits tellStatus responses to the fields the pipeline reads.
var statusKeys = []any{"gid", "status", "dir", "files", "bittorrent"}

// Client speaks aria2's JSON-RPC protocol over a single WebSocket
// connection. Responses are correlated to requests by id; unsolicited
// notifications feed the completion event stream.
type Client struct {
	conn    *websocket.Conn
	secret  string
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]chan rpcResponse

	events    chan string
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
	closing   atomic.Bool
}

// Dial connects to the configured aria2 endpoint and starts the read loop.
func Dial(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	endpoint := fmt.Sprintf("ws://%s:%d/jsonrpc", cfg.Aria2.Host, cfg.Aria2.Port)

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "connecting", "dial aria2", endpoint, err)
	}
	conn.SetReadLimit(8 << 20)

	client := &Client{
		conn:    conn,
		secret:  cfg.Aria2.Secret,
		timeout: time.Duration(cfg.Aria2.RequestTimeout) * time.Second,
		logger:  logging.WithComponent(logger, "aria2"),
		pending: make(map[string]chan rpcResponse),
		events:  make(chan string, cfg.Workflow.EventBuffer),
		closed:  make(chan struct{}),
	}
	go client.readLoop()
	return client, nil
}

// Events yields the GID of each download aria2 reports as complete. The
// channel closes when the connection drops. When the buffer is full a
// completion is dropped; the startup sweep on the next connection is what
// re-delivers it.
func (c *Client) Events() <-chan string { return c.events }

// Done is closed when the connection is no longer usable.
func (c *Client) Done() <-chan struct{} { return c.closed }

// Err reports why the connection closed, nil for a clean Close.
func (c *Client) Err() error {
	select {
	case <-c.closed:
		return c.closeErr
	default:
		return nil
	}
}

// Close tears the connection down. The read loop observes the closed socket
// and finishes the shutdown, so events is only ever closed from one place.
func (c *Client) Close() error {
	c.closing.Store(true)
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	<-c.closed
	return err
}

// TellStatus fetches one download by gid. A missing gid maps to
// services.ErrNotFound.
func (c *Client) TellStatus(ctx context.Context, gid string) (Download, error) {
	raw, err := c.call(ctx, "aria2.tellStatus", []any{gid, statusKeys})
	if err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) && rpcErr.Code == 1 {
			return Download{}, services.Wrap(services.ErrNotFound, "querying", "tellStatus", gid, err)
		}
		return Download{}, err
	}
	var payload statusPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Download{}, fmt.Errorf("decode tellStatus result: %w", err)
	}
	return payload.toDownload(), nil
}

// Downloads lists every download aria2 is tracking, across the active,
// waiting, and stopped sets.
func (c *Client) Downloads(ctx context.Context) ([]Download, error) {
	var all []Download
	calls := []struct {
		method string
		params []any
	}{
		{"aria2.tellActive", []any{statusKeys}},
		{"aria2.tellWaiting", []any{0, 1000, statusKeys}},
		{"aria2.tellStopped", []any{0, 1000, statusKeys}},
	}
	for _, call := range calls {
		raw, err := c.call(ctx, call.method, call.params)
		if err != nil {
			return nil, err
		}
		var payloads []statusPayload
		if err := json.Unmarshal(raw, &payloads); err != nil {
			return nil, fmt.Errorf("decode %s result: %w", call.method, err)
		}
		for _, payload := range payloads {
			all = append(all, payload.toDownload())
		}
	}
	return all, nil
}

// Forget drops a finished download from aria2's result set.
func (c *Client) Forget(ctx context.Context, gid string) error {
	_, err := c.call(ctx, "aria2.removeDownloadResult", []any{gid})
	return err
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id := uuid.NewString()
	request := rpcRequest{Version: "2.0", ID: id, Method: method}
	if c.secret != "" {
		request.Params = append([]any{"token:" + c.secret}, params...)
	} else {
		request.Params = params
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	ch := make(chan rpcResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.conn.Write(ctx, websocket.MessageText, body); err != nil {
		return nil, services.Wrap(services.ErrTransient, "querying", method, "write request", err)
	}

	select {
	case response := <-ch:
		if response.Error != nil {
			return nil, fmt.Errorf("%s: %w", method, response.Error)
		}
		return response.Result, nil
	case <-c.closed:
		return nil, services.Wrap(services.ErrTransient, "querying", method, "connection closed", c.closeErr)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) readLoop() {
	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.shutdown(err)
			return
		}

		var response rpcResponse
		if err := json.Unmarshal(data, &response); err != nil {
			c.logger.Warn("discarding unparseable frame", logging.Error(err))
			continue
		}

		if response.ID != "" {
			c.mu.Lock()
			ch, ok := c.pending[response.ID]
			c.mu.Unlock()
			if ok {
				ch <- response
			}
			continue
		}

		switch response.Method {
		case "aria2.onDownloadComplete", "aria2.onBtDownloadComplete":
			c.dispatchEvents(response.Params)
		case "aria2.onDownloadError":
			c.logDownloadErrors(response.Params)
		}
	}
}

func (c *Client) dispatchEvents(params json.RawMessage) {
	var payloads []eventPayload
	if err := json.Unmarshal(params, &payloads); err != nil {
		c.logger.Warn("discarding malformed completion event", logging.Error(err))
		return
	}
	for _, payload := range payloads {
		if payload.GID == "" {
			continue
		}
		select {
		case c.events <- payload.GID:
		default:
			// A blocked send would stall the read loop and every RPC reply
			// behind it. The reconnect-time sweep recovers the gid.
			c.logger.Warn("event buffer full, dropping completion",
				logging.String(logging.FieldGID, payload.GID))
		}
	}
}

func (c *Client) logDownloadErrors(params json.RawMessage) {
	var payloads []eventPayload
	if err := json.Unmarshal(params, &payloads); err != nil {
		return
	}
	for _, payload := range payloads {
		c.logger.Warn("download reported error",
			logging.String(logging.FieldGID, payload.GID))
	}
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		if c.closing.Load() {
			cause = nil
		}
		c.closeErr = cause
		close(c.closed)
		close(c.events)
		if cause != nil {
			c.logger.Warn("connection lost", logging.Error(cause))
		}
	})
}

package client

import (
	"asterctl/logger"
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient provides shared websocket utilities (connect, read/write, ping, close)
// used by specialized clients like WSMarketClient.
type WSClient struct {
	conn         *websocket.Conn
	url          string
	logger       *logger.Logger
	pingInterval time.Duration
	stopPing     chan struct{}
	closeOnce    sync.Once
	writeMu      sync.Mutex
}

func NewWSClient(url string, log *logger.Logger) *WSClient {
	if log == nil {
		log = logger.Nop()
	}
	return &WSClient{
		url:          url,
		logger:       log,
		pingInterval: 3 * time.Minute,
		stopPing:     make(chan struct{}),
	}
}

func (ws *WSClient) Connect(ctx context.Context) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, ws.url, nil)
	if err != nil {
		if resp != nil {
			ws.logger.Error("ws_connect_failed", "status", resp.Status, "err", err)
		}
		return err
	}
	ws.conn = conn
	ws.logger.Info("ws_connected", "url", ws.url)

	go ws.startPinger()

	return nil
}

func (ws *WSClient) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		close(ws.stopPing)
		if ws.conn != nil {
			err = ws.conn.Close()
		}
	})
	return err
}

func (ws *WSClient) WriteJSON(v any) error {
	if ws.conn == nil {
		return websocket.ErrBadHandshake
	}
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	return ws.conn.WriteJSON(v)
}

func (ws *WSClient) ReadMessage() (int, []byte, error) {
	if ws.conn == nil {
		return 0, nil, websocket.ErrBadHandshake
	}
	return ws.conn.ReadMessage()
}

func (ws *WSClient) startPinger() {
	ticker := time.NewTicker(ws.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ws.stopPing:
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := ws.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				ws.logger.Error("ping_failed", "err", err)
				return
			}
		}
	}
}

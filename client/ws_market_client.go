package client

import (
	"asterctl/logger"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
)

const DefaultWSURL = "wss://fstream.asterdex.com/ws"

type WSMarketClient struct {
	*WSClient
	onMarkPrice func(MarkPriceEvent)
	nextID      atomic.Int64
}

type WSMarketCallbacks struct {
	OnMarkPrice func(MarkPriceEvent)
}

func NewWSMarketClient(url string, callbacks WSMarketCallbacks, log *logger.Logger) *WSMarketClient {
	if url == "" {
		url = DefaultWSURL
	}
	return &WSMarketClient{
		WSClient:    NewWSClient(url, log),
		onMarkPrice: callbacks.OnMarkPrice,
	}
}

// MarkPriceStream is the per-second mark price stream name for symbol.
func MarkPriceStream(symbol string) string {
	return strings.ToLower(symbol) + "@markPrice@1s"
}

func (ws *WSMarketClient) SubscribeMarkPrice(symbols []string) error {
	if ws.WSClient == nil || ws.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	if len(symbols) == 0 {
		return nil
	}

	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, MarkPriceStream(s))
	}

	subMsg := WSSubscribeMessage{
		Method: "SUBSCRIBE",
		Params: streams,
		ID:     ws.nextID.Add(1),
	}
	if err := ws.WriteJSON(subMsg); err != nil {
		return fmt.Errorf("failed to send subscribe message: %w", err)
	}
	ws.logger.Info("ws_subscribed", "streams", streams)
	return nil
}

// combinedMessage is the envelope used by the /stream endpoint.
type combinedMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

func (ws *WSMarketClient) dispatchOne(message []byte) {
	var envelope combinedMessage
	if err := json.Unmarshal(message, &envelope); err == nil && envelope.Stream != "" && len(envelope.Data) > 0 {
		message = envelope.Data
	}

	var msgType WSMessage
	if err := json.Unmarshal(message, &msgType); err != nil && msgType.EventType == "" {
		ws.logger.Debug("ws_unrecognized_message", "err", err)
		return
	}

	switch msgType.EventType {
	case "markPriceUpdate":
		if ws.onMarkPrice != nil {
			var m MarkPriceEvent
			if err := json.Unmarshal(message, &m); err == nil {
				ws.onMarkPrice(m)
			} else {
				ws.logger.Warn("ws_decode_failed", "event", msgType.EventType, "err", err)
			}
		}
	}
}

// Listen reads and dispatches messages until ctx is cancelled or the
// connection fails. Cancelling ctx closes the connection.
func (ws *WSMarketClient) Listen(ctx context.Context) error {
	if ws.WSClient == nil || ws.conn == nil {
		return fmt.Errorf("websocket not connected")
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var raw json.RawMessage
		if err := json.Unmarshal(message, &raw); err != nil {
			continue
		}

		if len(raw) > 0 && raw[0] == '[' {
			var arr []json.RawMessage
			if err := json.Unmarshal(message, &arr); err != nil {
				continue
			}
			for _, elem := range arr {
				ws.dispatchOne(elem)
			}
			continue
		}

		ws.dispatchOne(message)
	}
}

func (ws *WSMarketClient) Close() error { return ws.WSClient.Close() }

package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/structrun/internal/domain"
)

// Kline is one candle update from the feed. Closed reports whether the bar
// has finished forming; only closed bars advance the PDI sequence.
type Kline struct {
	Symbol    string
	Interval  string
	StartTime time.Time
	Closed    bool
	Candle    domain.Candle
}

// Handler consumes kline updates for one stream.
type Handler func(Kline)

// wire formats: streams multiplex messages as {stream, data} with numeric
// fields encoded as strings.
type wireMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type wireKline struct {
	Symbol   string `json:"s"`
	Interval string `json:"i"`
	StartMs  int64  `json:"t"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	IsClosed bool   `json:"x"`
}

type subscribeMessage struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// Client is a kline websocket feed. One connection serves any number of
// symbol/interval streams; each stream dispatches to its registered handler
// from the read loop.
type Client struct {
	url string

	connMu sync.Mutex
	conn   *websocket.Conn

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	cancel context.CancelFunc
	nextID int64
}

// NewClient creates a feed client for the given websocket endpoint.
func NewClient(url string) *Client {
	return &Client{
		url:      url,
		handlers: make(map[string]Handler),
	}
}

// Connect dials the endpoint and starts the read and ping loops.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return fmt.Errorf("feed already connected")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.conn = conn

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.readLoop(loopCtx)
	go c.pingLoop(loopCtx)

	log.Info().Str("url", c.url).Msg("kline feed connected")
	return nil
}

// Close stops the loops and closes the connection.
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// SubscribeKlines subscribes to a symbol/interval stream and registers its
// handler.
func (c *Client) SubscribeKlines(symbol, interval string, h Handler) error {
	stream := fmt.Sprintf("%s@kline_%s", symbol, interval)

	c.handlersMu.Lock()
	if _, dup := c.handlers[stream]; dup {
		c.handlersMu.Unlock()
		return fmt.Errorf("already subscribed: %s", stream)
	}
	c.handlers[stream] = h
	c.handlersMu.Unlock()

	c.nextID++
	msg := subscribeMessage{Method: "SUBSCRIBE", Params: []string{stream}, ID: c.nextID}
	if err := c.send(msg); err != nil {
		c.handlersMu.Lock()
		delete(c.handlers, stream)
		c.handlersMu.Unlock()
		return fmt.Errorf("subscribe %s: %w", stream, err)
	}
	return nil
}

func (c *Client) send(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("feed not connected")
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("kline feed read failed")
			}
			return
		}
		c.dispatch(payload)
	}
}

func (c *Client) dispatch(payload []byte) {
	var msg wireMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Stream == "" {
		return
	}

	c.handlersMu.RLock()
	h, ok := c.handlers[msg.Stream]
	c.handlersMu.RUnlock()
	if !ok {
		return
	}

	var wk wireKline
	if err := json.Unmarshal(msg.Data, &wk); err != nil {
		log.Warn().Err(err).Str("stream", msg.Stream).Msg("malformed kline payload")
		return
	}
	k, err := wk.toKline()
	if err != nil {
		log.Warn().Err(err).Str("stream", msg.Stream).Msg("unparseable kline fields")
		return
	}
	h(k)
}

func (wk wireKline) toKline() (Kline, error) {
	k := Kline{
		Symbol:    wk.Symbol,
		Interval:  wk.Interval,
		StartTime: time.UnixMilli(wk.StartMs).UTC(),
		Closed:    wk.IsClosed,
	}
	k.Candle.Time = k.StartTime

	for _, field := range []struct {
		raw string
		dst *float64
	}{
		{wk.Open, &k.Candle.Open}, {wk.High, &k.Candle.High},
		{wk.Low, &k.Candle.Low}, {wk.Close, &k.Candle.Close},
	} {
		v, err := strconv.ParseFloat(field.raw, 64)
		if err != nil {
			return Kline{}, fmt.Errorf("parse kline field %q: %w", field.raw, err)
		}
		*field.dst = v
	}
	return k, nil
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()
			if conn == nil {
				return
			}
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Warn().Err(err).Msg("kline feed ping failed")
			}
		}
	}
}

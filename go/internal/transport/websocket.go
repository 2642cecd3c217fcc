package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Config holds tuning for the websocket channel.
type Config struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	InboundBuffer  int
}

// DefaultConfig returns the default websocket configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
		InboundBuffer:  256,
	}
}

// WebsocketChannel is the production Channel: a gorilla websocket client
// connection with dedicated read and write pumps.
type WebsocketChannel struct {
	conn    *websocket.Conn
	config  Config
	send    chan Envelope
	inbound chan Envelope

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens a websocket channel to the given URL.
func Dial(ctx context.Context, url string, config Config) (*WebsocketChannel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWebsocketChannel(conn, config), nil
}

// withDefaults fills unset config fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.InboundBuffer <= 0 {
		c.InboundBuffer = def.InboundBuffer
	}
	return c
}

// NewWebsocketChannel wraps an established websocket connection. A zero
// config selects DefaultConfig.
func NewWebsocketChannel(conn *websocket.Conn, config Config) *WebsocketChannel {
	config = config.withDefaults()
	ch := &WebsocketChannel{
		conn:    conn,
		config:  config,
		send:    make(chan Envelope, config.SendBuffer),
		inbound: make(chan Envelope, config.InboundBuffer),
		closed:  make(chan struct{}),
	}
	go ch.writePump()
	go ch.readPump()
	return ch
}

// Send enqueues an envelope on the write pump.
func (ch *WebsocketChannel) Send(event string, payload any) error {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	select {
	case <-ch.closed:
		return ErrChannelClosed
	case ch.send <- env:
		return nil
	}
}

// Inbound returns the stream of server envelopes. It is closed when the
// connection drops or Close is called.
func (ch *WebsocketChannel) Inbound() <-chan Envelope {
	return ch.inbound
}

// Close shuts the channel down. The write pump flushes queued envelopes,
// sends a close frame and closes the underlying connection. Idempotent.
func (ch *WebsocketChannel) Close() error {
	ch.closeOnce.Do(func() {
		close(ch.closed)
	})
	return nil
}

func (ch *WebsocketChannel) writePump() {
	ticker := time.NewTicker(ch.config.PingInterval)
	defer func() {
		ticker.Stop()
		ch.Close()
		ch.conn.Close()
	}()

	for {
		select {
		case <-ch.closed:
			// Flush whatever was queued before the close; disconnect teardown
			// relies on its deny/cancel events reaching the wire.
			for {
				select {
				case env := <-ch.send:
					if data, err := json.Marshal(env); err == nil {
						ch.conn.SetWriteDeadline(time.Now().Add(ch.config.WriteTimeout))
						ch.conn.WriteMessage(websocket.TextMessage, data)
					}
					continue
				default:
				}
				break
			}
			ch.conn.SetWriteDeadline(time.Now().Add(ch.config.WriteTimeout))
			ch.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case env := <-ch.send:
			data, err := json.Marshal(env)
			if err != nil {
				log.Error().Err(err).Str("event", env.Event).Msg("failed to marshal envelope")
				continue
			}
			ch.conn.SetWriteDeadline(time.Now().Add(ch.config.WriteTimeout))
			if err := ch.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("event", env.Event).Msg("failed to write to event channel")
				return
			}

		case <-ticker.C:
			ch.conn.SetWriteDeadline(time.Now().Add(ch.config.WriteTimeout))
			if err := ch.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ch *WebsocketChannel) readPump() {
	defer func() {
		ch.Close()
		close(ch.inbound)
	}()

	ch.conn.SetReadLimit(ch.config.MaxMessageSize)
	ch.conn.SetReadDeadline(time.Now().Add(ch.config.ReadTimeout))
	ch.conn.SetPongHandler(func(string) error {
		ch.conn.SetReadDeadline(time.Now().Add(ch.config.ReadTimeout))
		return nil
	})

	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("unexpected event channel close")
			}
			return
		}
		ch.conn.SetReadDeadline(time.Now().Add(ch.config.ReadTimeout))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Msg("discarding malformed channel frame")
			continue
		}

		select {
		case ch.inbound <- env:
		case <-ch.closed:
			return
		}
	}
}

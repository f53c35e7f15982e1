package signal

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nightowl-labs/signal-trader/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultReadTimeout    = 60 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultPingInterval   = 20 * time.Second
	defaultReconnectDelay = 5 * time.Second
	maxMessageSize        = 1 << 20
)

// WebSocketSourceConfig configures a websocket chat source.
type WebSocketSourceConfig struct {
	// URL of the chat stream to subscribe to.
	URL string `yaml:"url" json:"url" validate:"required"`
	// MessageTemplate filters inbound messages; only messages containing the
	// template are forwarded. Empty forwards everything.
	MessageTemplate string        `yaml:"message_template" json:"message_template"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval" json:"ping_interval"`
	ReconnectDelay  time.Duration `yaml:"reconnect_delay" json:"reconnect_delay"`
}

func (c *WebSocketSourceConfig) applyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}

	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}

	if c.PingInterval == 0 {
		c.PingInterval = defaultPingInterval
	}

	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
}

// WebSocketSource subscribes to a chat stream over a websocket connection and
// forwards matching messages. The connection is re-dialed with a fixed delay
// after read failures until the context is cancelled.
type WebSocketSource struct {
	config WebSocketSourceConfig
	log    *logger.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWebSocketSource creates a websocket source. Dialing happens in Listen.
func NewWebSocketSource(config WebSocketSourceConfig, log *logger.Logger) *WebSocketSource {
	config.applyDefaults()

	return &WebSocketSource{
		config: config,
		log:    log,
		conn:   nil,
		closed: false,
	}
}

// Listen dials the stream and returns a channel of filtered messages. The
// channel is closed when the context is cancelled or the source is closed.
func (s *WebSocketSource) Listen(ctx context.Context) (<-chan Message, error) {
	if err := s.dial(); err != nil {
		return nil, err
	}

	out := make(chan Message, 64)

	go s.run(ctx, out)

	return out, nil
}

// Close tears down the current connection. Safe to call more than once.
func (s *WebSocketSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.conn != nil {
		return s.conn.Close()
	}

	return nil
}

func (s *WebSocketSource) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.config.URL, nil)
	if err != nil {
		return err
	}

	conn.SetReadLimit(maxMessageSize)

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.log.Info("Signal source connected", zap.String("url", s.config.URL))

	return nil
}

func (s *WebSocketSource) run(ctx context.Context, out chan<- Message) {
	defer close(out)

	for {
		s.readLoop(ctx, out)

		// The connection is dead once the read loop returns. Drop it so a
		// failed re-dial does not spin on the stale handle.
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.ReconnectDelay):
		}

		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return
		}

		if err := s.dial(); err != nil {
			s.log.Warn("Signal source reconnect failed",
				zap.String("url", s.config.URL),
				zap.Error(err),
			)
		}
	}
}

// readLoop pumps messages from the connection until it fails or the context
// is cancelled. A ping ticker keeps the connection alive.
func (s *WebSocketSource) readLoop(ctx context.Context, out chan<- Message) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()

				return
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("Signal source read failed", zap.Error(err))
			}

			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		text := string(raw)
		if s.config.MessageTemplate != "" && !strings.Contains(text, s.config.MessageTemplate) {
			continue
		}

		select {
		case out <- Message{Text: text, ReceivedAt: time.Now()}:
		case <-ctx.Done():
			return
		}
	}
}

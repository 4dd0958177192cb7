// Package alchemy provides an adapter for Alchemy's WebSocket API.
package alchemy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

// Compile-time check that Subscriber implements outbound.BlockSubscriber
var _ outbound.BlockSubscriber = (*Subscriber)(nil)

// Subscriber is a WebSocket newHeads feed with automatic reconnection. It
// is the Subscription strategy's adapter: it only forwards
// what the node sends, in order received. Deduplication and the decision
// to fall back to the HTTP filter or polling strategies belong to
// internal/blocksource, which composes this port.
type Subscriber struct {
	config Config

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	headers chan outbound.BlockHeader
}

// NewSubscriber creates a new Alchemy WebSocket subscriber with automatic reconnection.
func NewSubscriber(config Config) (*Subscriber, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.applyDefaults()
	return &Subscriber{
		config:  config,
		done:    make(chan struct{}),
		headers: make(chan outbound.BlockHeader, config.ChannelBufferSize),
	}, nil
}

// Subscribe starts listening for new block headers via Alchemy's eth_newHeads subscription.
// The subscription automatically reconnects if the connection is lost.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan outbound.BlockHeader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("subscriber is closed")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	go s.connectionManager()

	return s.headers, nil
}

// Unsubscribe stops the subscription and closes the block header channel.
func (s *Subscriber) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	if s.cancel != nil {
		s.cancel()
	}
	s.closeConnectionLocked()
	return nil
}

// HealthCheck reports whether the subscriber currently holds an open connection.
func (s *Subscriber) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return errors.New("no active websocket connection")
	}
	return nil
}

// connectionManager manages the WebSocket connection with automatic reconnection.
func (s *Subscriber) connectionManager() {
	// This goroutine is the only sender on s.headers, so it closes the
	// channel when it stops (on Unsubscribe or context cancellation).
	defer close(s.headers)
	backoff := s.config.InitialBackoff
	logger := s.config.Logger.With("component", "alchemy-subscriber")

	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		default:
		}

		if err := s.connectAndSubscribe(); err != nil {
			logger.Warn("failed to connect", "error", err, "backoff", backoff)
			select {
			case <-s.done:
				return
			case <-s.ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * s.config.BackoffFactor)
			if backoff > s.config.MaxBackoff {
				backoff = s.config.MaxBackoff
			}
			continue
		}

		backoff = s.config.InitialBackoff
		logger.Info("connected to Alchemy WebSocket")

		s.readLoop(logger)

		logger.Warn("websocket connection lost, reconnecting")
	}
}

// connectAndSubscribe establishes the WebSocket connection and subscribes to newHeads.
func (s *Subscriber) connectAndSubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(s.ctx, s.config.WebSocketURL, nil)
	if err != nil {
		return fmt.Errorf("dial alchemy websocket: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
		conn.Close()
		return fmt.Errorf("set read deadline: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	s.conn = conn

	subscribeReq := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_subscribe",
		Params:  []interface{}{"newHeads"},
	}
	if err := conn.WriteJSON(subscribeReq); err != nil {
		conn.Close()
		s.conn = nil
		return fmt.Errorf("send subscription request: %w", err)
	}

	var response jsonRPCResponse
	if err := conn.ReadJSON(&response); err != nil {
		conn.Close()
		s.conn = nil
		return fmt.Errorf("read subscription response: %w", err)
	}
	if response.Error != nil {
		conn.Close()
		s.conn = nil
		return fmt.Errorf("subscription failed: %s", response.Error.Message)
	}

	return nil
}

// readLoop continuously reads block headers from the WebSocket connection
// and pings periodically to keep it alive. It returns once the connection
// fails or the subscriber is stopped.
func (s *Subscriber) readLoop(logger *slog.Logger) {
	pingTicker := time.NewTicker(s.config.PingInterval)
	defer pingTicker.Stop()

	readErr := make(chan error, 1)
	blockChan := make(chan outbound.BlockHeader, s.config.ChannelBufferSize)

	go func() {
		for {
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn == nil {
				readErr <- errors.New("connection is nil")
				return
			}

			if err := conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
				readErr <- fmt.Errorf("set read deadline: %w", err)
				return
			}

			var response jsonRPCResponse
			if err := conn.ReadJSON(&response); err != nil {
				readErr <- err
				return
			}

			if response.Method != "eth_subscription" || response.Params == nil {
				continue
			}
			var params subscriptionParams
			if err := json.Unmarshal(response.Params, &params); err != nil {
				logger.Warn("failed to parse subscription params", "error", err)
				continue
			}

			select {
			case blockChan <- params.Result:
			case <-s.done:
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-s.done:
			s.closeConnection()
			return
		case <-s.ctx.Done():
			s.closeConnection()
			return
		case err := <-readErr:
			logger.Warn("read error", "error", err)
			s.closeConnection()
			return
		case header := <-blockChan:
			select {
			case s.headers <- header:
			default:
				logger.Warn("block header channel full, dropping block", "hash", truncateHash(header.Hash))
			}
		case <-pingTicker.C:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn != nil {
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.PongTimeout)); err != nil {
					logger.Warn("ping failed", "error", err)
					s.closeConnection()
					return
				}
			}
		}
	}
}

func (s *Subscriber) closeConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeConnectionLocked()
}

func (s *Subscriber) closeConnectionLocked() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

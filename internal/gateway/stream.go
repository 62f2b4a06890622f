package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
	"github.com/tytsxai/longbridge-terminal/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	maxConnectAttempts = 10
	pingInterval       = 30 * time.Second
	readTimeout        = 60 * time.Second
	handshakeTimeout   = 10 * time.Second
	frameBufferSize    = 1024
)

// Stream maintains the push subscription connection and delivers raw
// frames to the ingestion loop. Transient disconnects are retried with
// exponential backoff; after maxConnectAttempts consecutive failures
// the stream is considered lost, the frame channel closes and Err()
// reports the fatal cause.
type Stream struct {
	url     string
	limiter *Limiter

	pingEvery time.Duration // shortened in tests

	frames chan []byte
	state  atomic.Int32

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	fatal   error

	subscribed []domain.Instrument

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStream creates a push stream worker. Subscribe commands sent on
// the socket are rate-governed like every other outbound call.
func NewStream(url string, limiter *Limiter) *Stream {
	return &Stream{
		url:       url,
		limiter:   limiter,
		pingEvery: pingInterval,
		frames:    make(chan []byte, frameBufferSize),
	}
}

// Frames returns the raw inbound frame channel. It is closed exactly
// once, on shutdown or on fatal stream loss.
func (s *Stream) Frames() <-chan []byte {
	return s.frames
}

// ReadyState returns the current connection state.
func (s *Stream) ReadyState() ReadyState {
	return ReadyState(s.state.Load())
}

// Err returns the fatal stream error, nil while the stream is healthy
// or after a clean shutdown.
func (s *Stream) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fatal
}

// Connect starts the connection loop in the background.
func (s *Stream) Connect(ctx context.Context, instruments []domain.Instrument) error {
	s.subscribed = instruments
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.connectionLoop(ctx)
	return nil
}

func (s *Stream) connectionLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.frames)

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			s.state.Store(int32(StateClosed))
			return
		default:
		}

		if err := s.connect(ctx); err != nil {
			retryCount++
			slog.Warn("Push stream connection failed",
				slog.Any("error", err), slog.Int("retry", retryCount))
			if retryCount >= maxConnectAttempts {
				s.mu.Lock()
				s.fatal = domain.NewFatalNetworkError("connect", fmt.Errorf("%w: %w", domain.ErrStreamClosed, err))
				s.mu.Unlock()
				s.state.Store(int32(StateClosed))
				return
			}
			delay := infra.CalculateBackoff(retryCount - 1)
			select {
			case <-ctx.Done():
				s.state.Store(int32(StateClosed))
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			s.readLoop(ctx)
		}
	}
}

func (s *Stream) connect(ctx context.Context) error {
	s.state.Store(int32(StateConnecting))

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, http.Header{})
	if err != nil {
		s.state.Store(int32(StateClosed))
		return domain.NewNetworkError("dial", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.state.Store(int32(StateOpen))
	infra.GlobalMetrics.SetStreamConnected(true)

	if err := s.Subscribe(ctx, s.subscribed); err != nil {
		s.closeConnection()
		return err
	}

	slog.Info("Push stream connected", slog.Int("subs", len(s.subscribed)))
	return nil
}

// Subscribe sends a subscribe command for the given instruments.
func (s *Stream) Subscribe(ctx context.Context, instruments []domain.Instrument) error {
	return s.sendCommand(ctx, "subscribe", instruments)
}

// Unsubscribe sends an unsubscribe command for the given instruments.
func (s *Stream) Unsubscribe(ctx context.Context, instruments []domain.Instrument) error {
	return s.sendCommand(ctx, "unsubscribe", instruments)
}

func (s *Stream) sendCommand(ctx context.Context, op string, instruments []domain.Instrument) error {
	symbols := make([]string, len(instruments))
	for i, inst := range instruments {
		symbols[i] = inst.String()
	}
	cmd := subscribeCommand{
		Op:      op,
		Symbols: symbols,
		SubType: []string{"quote", "depth", "trade"},
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	return s.limiter.Execute(ctx, op, func(context.Context) error {
		return s.threadSafeWrite(websocket.TextMessage, b)
	})
}

func (s *Stream) threadSafeWrite(msgType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return domain.NewNetworkError("write", fmt.Errorf("no connection"))
	}
	return s.conn.WriteMessage(msgType, data)
}

func (s *Stream) readLoop(ctx context.Context) {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go s.pingLoop(pingCtx)

	for {
		select {
		case <-ctx.Done():
			s.closeConnection()
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("Push stream read failed", slog.Any("error", err))
			s.closeConnection()
			return
		}

		select {
		case s.frames <- msg:
		default:
			// Ingestion is behind; drop the frame rather than block the
			// socket read.
			infra.GlobalMetrics.RecordFrameDropped()
		}
	}
}

// pingLoop keeps the connection alive for one readLoop session. It owns
// its ticker and exits on cancellation or the first write failure, so a
// reconnect never strands a pinger.
func (s *Stream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.threadSafeWrite(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Stream) closeConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.state.Store(int32(StateClosing))
		s.conn.Close()
		s.conn = nil
	}
	s.state.Store(int32(StateClosed))
	infra.GlobalMetrics.SetStreamConnected(false)
}

// Disconnect stops the connection loop and waits for it to exit.
func (s *Stream) Disconnect() {
	if s.cancel != nil {
		s.cancel()
	}
	s.closeConnection()
	s.wg.Wait()
}

// Package marketdata provides the exchange-facing adapters: a WebSocket
// snapshot stream and a MarketData provider with a REST fallback.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/logger"
)

// Stream implements repository.SnapshotStream over a WebSocket ticker feed.
type Stream struct {
	url            string
	apiKey         string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func NewStream(cfg *config.Config, log *logger.Logger) repository.SnapshotStream {
	return &Stream{
		url:            cfg.MarketData.WebSocketURL,
		apiKey:         cfg.MarketData.APIKey,
		symbols:        cfg.Universe,
		reconnectDelay: cfg.MarketData.ReconnectDelay,
		pingInterval:   cfg.MarketData.PingInterval,
		logger:         log.With("snapshot_stream"),
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	u := s.url
	if s.apiKey != "" {
		u = fmt.Sprintf("%s?token=%s", s.url, s.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	s.logger.Info("stream connected")
	return nil
}

// Subscribe subscribes to ticker frames for the configured universe.
func (s *Stream) Subscribe(_ context.Context) error {
	s.mu.Lock()
	conn, connected := s.conn, s.connected
	s.mu.Unlock()
	if conn == nil || !connected {
		return fmt.Errorf("stream not connected")
	}

	for _, sym := range s.symbols {
		msg := map[string]string{"type": "subscribe", "channel": "ticker", "symbol": sym}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	s.logger.Info("subscribed", logger.Int("symbols", len(s.symbols)))
	return nil
}

// tickerFrame is the wire shape of one enriched ticker update. Depth, funding
// and institutional fields are optional; absent fields stay nil on the model.
type tickerFrame struct {
	Symbol    string   `json:"symbol"`
	Price     float64  `json:"price"`
	Volume24h float64  `json:"volume_24h"`
	Ts        int64    `json:"ts"` // ms
	BidDepth  *float64 `json:"bid_depth,omitempty"`
	AskDepth  *float64 `json:"ask_depth,omitempty"`
	Funding   *float64 `json:"funding_rate,omitempty"`
	InstRatio *float64 `json:"institutional_flow_ratio,omitempty"`
}

type tickerMessage struct {
	Type string        `json:"type"`
	Data []tickerFrame `json:"data"`
}

// Read streams snapshots and errors until ctx ends or the connection drops.
func (s *Stream) Read(ctx context.Context) (<-chan *models.TickerSnapshot, <-chan error) {
	snaps := make(chan *models.TickerSnapshot, 1024)
	errs := make(chan error, 1)

	go s.pingLoop(ctx)

	go func() {
		defer close(snaps)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("stream conn nil")
				return
			}

			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("stream read: %w", err)
				return
			}

			var m tickerMessage
			if err := json.Unmarshal(b, &m); err != nil || m.Type != "ticker" {
				// ignore non-ticker frames
				continue
			}
			for _, f := range m.Data {
				snap := frameToSnapshot(f)
				select {
				case snaps <- snap:
				default:
					// drop on backpressure, the next frame supersedes
				}
			}
		}
	}()

	return snaps, errs
}

func frameToSnapshot(f tickerFrame) *models.TickerSnapshot {
	snap := &models.TickerSnapshot{
		Symbol:                 f.Symbol,
		Price:                  f.Price,
		Volume24h:              f.Volume24h,
		Timestamp:              time.UnixMilli(f.Ts),
		FundingRate:            f.Funding,
		InstitutionalFlowRatio: f.InstRatio,
	}
	if f.BidDepth != nil && f.AskDepth != nil {
		snap.Depth = models.NewOrderBookDepth(*f.BidDepth, *f.AskDepth)
	}
	return snap
}

func (s *Stream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

// Reconnect closes and re-establishes the connection and subscriptions.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected reports connection status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

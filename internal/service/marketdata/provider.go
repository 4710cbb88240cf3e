package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/pkg/config"
	httpclient "ChainPulse/pkg/http"
	"ChainPulse/pkg/logger"
)

// Provider implements repository.MarketData. It serves from the quote table
// fed by the stream collector and falls back to the REST API when a symbol is
// missing or the cached quote has gone stale.
type Provider struct {
	cfg    *config.Config
	client *httpclient.Client
	logger *logger.Logger

	mu     sync.RWMutex
	quotes map[string]*models.TickerSnapshot
}

// staleAfter bounds how old a streamed quote may be before the provider
// re-fetches over REST.
const staleAfter = 2 * time.Minute

func NewProvider(cfg *config.Config, log *logger.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		client: httpclient.NewClient(
			httpclient.WithClientTimeout(cfg.MarketData.Timeout),
			httpclient.WithAPIKey(cfg.MarketData.APIKey),
		),
		logger: log.With("marketdata"),
		quotes: make(map[string]*models.TickerSnapshot),
	}
}

// Publish records a streamed snapshot into the quote table. Called by the
// ingest pipeline.
func (p *Provider) Publish(snap *models.TickerSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.quotes[snap.Symbol]
	if ok && snap.Timestamp.Before(cur.Timestamp) {
		return
	}
	p.quotes[snap.Symbol] = snap
}

// Snapshot returns the current market snapshot for symbol.
func (p *Provider) Snapshot(ctx context.Context, symbol string) (*models.TickerSnapshot, error) {
	p.mu.RLock()
	cached, ok := p.quotes[symbol]
	p.mu.RUnlock()

	if ok && time.Since(cached.Timestamp) < staleAfter {
		cp := *cached
		return &cp, nil
	}

	snap, err := p.fetch(ctx, symbol)
	if err != nil {
		if ok {
			// Stale beats nothing when the REST path is down.
			p.logger.Warn("rest fetch failed, serving stale quote",
				logger.String("symbol", symbol), logger.Error(err))
			cp := *cached
			return &cp, nil
		}
		return nil, err
	}

	p.Publish(snap)
	return snap, nil
}

// Price returns the current price for symbol.
func (p *Provider) Price(ctx context.Context, symbol string) (float64, error) {
	snap, err := p.Snapshot(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return snap.Price, nil
}

// restTicker is the REST API's ticker payload.
type restTicker struct {
	Symbol    string   `json:"symbol"`
	Price     float64  `json:"price"`
	Volume24h float64  `json:"volume_24h"`
	Ts        int64    `json:"ts"`
	BidDepth  *float64 `json:"bid_depth,omitempty"`
	AskDepth  *float64 `json:"ask_depth,omitempty"`
	Funding   *float64 `json:"funding_rate,omitempty"`
	InstRatio *float64 `json:"institutional_flow_ratio,omitempty"`
}

func (p *Provider) fetch(ctx context.Context, symbol string) (*models.TickerSnapshot, error) {
	if p.cfg.MarketData.RestURL == "" {
		return nil, fmt.Errorf("no quote for %s and no rest url configured", symbol)
	}

	var t restTicker
	err := p.client.GetJSON(ctx, p.cfg.MarketData.RestURL+"/ticker",
		url.Values{"symbol": {symbol}}, &t)
	if err != nil {
		return nil, fmt.Errorf("fetch ticker %s: %w", symbol, err)
	}

	ts := time.Now()
	if t.Ts > 0 {
		ts = time.UnixMilli(t.Ts)
	}
	snap := &models.TickerSnapshot{
		Symbol:                 symbol,
		Price:                  t.Price,
		Volume24h:              t.Volume24h,
		Timestamp:              ts,
		FundingRate:            t.Funding,
		InstitutionalFlowRatio: t.InstRatio,
	}
	if t.BidDepth != nil && t.AskDepth != nil {
		snap.Depth = models.NewOrderBookDepth(*t.BidDepth, *t.AskDepth)
	}
	return snap, nil
}

// Package api exposes the HTTP surface: scan status and trigger, open
// signals, flow summaries and outcome statistics.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/flow"
	"ChainPulse/internal/lifecycle"
	"ChainPulse/internal/scanner"
	pkghttp "ChainPulse/pkg/http"
	"ChainPulse/pkg/logger"
	"ChainPulse/pkg/util"
)

// StreamStatus reports whether the snapshot feed is up.
type StreamStatus interface {
	IsConnected() bool
}

// Handler serves the signal pipeline API.
type Handler struct {
	scanner *scanner.Scanner
	tracker *lifecycle.Tracker
	flow    *flow.Analyzer
	store   repository.SignalStore
	stream  StreamStatus
	logger  *logger.Logger
}

func NewHandler(
	sc *scanner.Scanner,
	tracker *lifecycle.Tracker,
	analyzer *flow.Analyzer,
	store repository.SignalStore,
	stream StreamStatus,
	log *logger.Logger,
) *Handler {
	return &Handler{
		scanner: sc,
		tracker: tracker,
		flow:    analyzer,
		store:   store,
		stream:  stream,
		logger:  log.With("api"),
	}
}

// RegisterRoutes registers API routes on the Echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/signals/active", h.ActiveSignals)
	g.GET("/signals/history", h.SignalHistory)
	g.GET("/signals/:symbol", h.SignalBySymbol)
	g.GET("/flow/:symbol", h.FlowBySymbol)
	g.GET("/stats", h.Stats)
	g.POST("/scan", h.TriggerScan)
}

type statusResponse struct {
	IsScanning       bool      `json:"is_scanning"`
	LastScanTime     time.Time `json:"last_scan_time"`
	NextScanTime     time.Time `json:"next_scan_time"`
	CoinsScanned     int       `json:"coins_scanned"`
	SignalsGenerated int64     `json:"signals_generated"`
	WinRate          float64   `json:"win_rate"`
	StreamConnected  bool      `json:"stream_connected"`
}

// Status reports the orchestrator state and rolling win rate.
func (h *Handler) Status(c echo.Context) error {
	st := h.scanner.Status()
	resp := statusResponse{
		IsScanning:       st.IsScanning,
		LastScanTime:     st.LastScanTime,
		NextScanTime:     st.NextScanTime,
		CoinsScanned:     st.CoinsScanned,
		SignalsGenerated: st.SignalsGenerated,
		StreamConnected:  h.stream != nil && h.stream.IsConnected(),
	}
	if stats, err := h.tracker.Stats(c.Request().Context()); err == nil {
		resp.WinRate = stats.WinRate
	}
	return pkghttp.SuccessResponse(c, resp)
}

type signalDTO struct {
	ID              string     `json:"id"`
	Symbol          string     `json:"symbol"`
	Direction       string     `json:"direction"`
	Confidence      float64    `json:"confidence"`
	EntryMin        float64    `json:"entry_min"`
	EntryMax        float64    `json:"entry_max"`
	PriceAtCreation float64    `json:"price_at_creation"`
	StopLoss        float64    `json:"stop_loss"`
	Targets         []float64  `json:"targets"`
	Risk            string     `json:"risk"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ExitPrice       *float64   `json:"exit_price,omitempty"`
}

func toSignalDTO(s *models.Signal) signalDTO {
	return signalDTO{
		ID:              s.ID,
		Symbol:          s.Symbol,
		Direction:       string(s.Direction),
		Confidence:      s.Confidence,
		EntryMin:        s.EntryMin,
		EntryMax:        s.EntryMax,
		PriceAtCreation: s.PriceAtCreation,
		StopLoss:        s.StopLoss,
		Targets:         s.Targets,
		Risk:            string(s.Risk),
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt,
		ExpiresAt:       s.ExpiresAt,
		ResolvedAt:      s.ResolvedAt,
		ExitPrice:       s.ExitPrice,
	}
}

// ActiveSignals lists all open signals.
func (h *Handler) ActiveSignals(c echo.Context) error {
	signals, err := h.store.Active(c.Request().Context())
	if err != nil {
		h.logger.Error("query active signals", logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	rows := make([]signalDTO, 0, len(signals))
	for _, s := range signals {
		rows = append(rows, toSignalDTO(s))
	}
	return pkghttp.ListResponse(c, rows, int64(len(rows)))
}

// historyDefaultWindow bounds the history query when no since parameter is
// given.
const historyDefaultWindow = 24 * time.Hour

// SignalHistory lists resolved signals, newest first. The since parameter
// accepts RFC3339 or unix seconds; limit caps the page size.
func (h *Handler) SignalHistory(c echo.Context) error {
	since := util.ParseTimeDefault(c.QueryParam("since"), time.Now().Add(-historyDefaultWindow))
	limit := util.ParseIntDefault(c.QueryParam("limit"), 50)
	if limit <= 0 {
		return pkghttp.BadRequestResponse(c, "limit must be positive")
	}

	signals, err := h.store.Terminal(c.Request().Context(), since)
	if err != nil {
		h.logger.Error("query signal history", logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}

	total := int64(len(signals))
	if len(signals) > limit {
		signals = signals[:limit]
	}
	rows := make([]signalDTO, 0, len(signals))
	for _, s := range signals {
		rows = append(rows, toSignalDTO(s))
	}
	return pkghttp.ListResponse(c, rows, total)
}

// SignalBySymbol returns the open signal for one symbol.
func (h *Handler) SignalBySymbol(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return pkghttp.BadRequestResponse(c, "symbol is required")
	}

	sig, err := h.store.ActiveBySymbol(c.Request().Context(), symbol)
	if err != nil {
		h.logger.Error("query signal", logger.String("symbol", symbol), logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	if sig == nil {
		return pkghttp.AppErrorResponse(c, pkghttp.NotFoundErrorf("no active signal for %s", symbol))
	}
	return pkghttp.SuccessResponse(c, toSignalDTO(sig))
}

type flowDTO struct {
	Symbol           string    `json:"symbol"`
	Timeframe        string    `json:"timeframe"`
	InflowUSD        float64   `json:"inflow_usd"`
	OutflowUSD       float64   `json:"outflow_usd"`
	NetFlowUSD       float64   `json:"net_flow_usd"`
	FlowRatio        float64   `json:"flow_ratio"`
	TransactionCount int       `json:"transaction_count"`
	Interpretation   string    `json:"interpretation"`
	Sentiment        string    `json:"sentiment"`
	ComputedAt       time.Time `json:"computed_at"`
}

type flowRequest struct {
	Timeframe string `query:"timeframe" default:"24h" validate:"oneof=1h 4h 24h 7d 30d"`
}

// FlowBySymbol returns the exchange-flow summary for one symbol. The
// timeframe query parameter defaults to 24h.
func (h *Handler) FlowBySymbol(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return pkghttp.BadRequestResponse(c, "symbol is required")
	}
	var req flowRequest
	if verr := pkghttp.ReadAndValidateRequest(c, &req); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}

	summary, err := h.flow.Summary(c.Request().Context(), symbol, req.Timeframe)
	if err != nil {
		h.logger.Error("flow summary", logger.String("symbol", symbol), logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	return pkghttp.SuccessResponse(c, flowDTO{
		Symbol:           summary.Symbol,
		Timeframe:        summary.Timeframe,
		InflowUSD:        summary.InflowUSD,
		OutflowUSD:       summary.OutflowUSD,
		NetFlowUSD:       summary.NetFlowUSD,
		FlowRatio:        summary.FlowRatio(),
		TransactionCount: summary.TransactionCount,
		Interpretation:   string(summary.Interpretation),
		Sentiment:        string(summary.Sentiment),
		ComputedAt:       summary.ComputedAt,
	})
}

// Stats returns terminal-outcome statistics over the stats window.
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.tracker.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("outcome stats", logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	return pkghttp.SuccessResponse(c, stats)
}

// TriggerScan starts a scan cycle in the background. A cycle already in
// flight yields 409.
func (h *Handler) TriggerScan(c echo.Context) error {
	if h.scanner.Status().IsScanning {
		return pkghttp.AppErrorResponse(c, pkghttp.ConflictError("scan already in progress"))
	}

	// The cycle runs on a background context detached from the request. Two
	// racing triggers are safe: the single-flight guard turns the loser into
	// a no-op.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := h.scanner.RunCycle(ctx); err != nil && !errors.Is(err, scanner.ErrScanInFlight) {
			h.logger.Error("manual scan failed", logger.Error(err))
		}
	}()
	return pkghttp.AcceptedResponse(c, map[string]string{"status": "scan started"})
}

package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ChainPulse/internal/domain/models"
	domrepo "ChainPulse/internal/domain/repository"
	"ChainPulse/internal/flow"
	"ChainPulse/pkg/config"
	pkgkafka "ChainPulse/pkg/kafka"
	"ChainPulse/pkg/logger"
)

// WhaleIngestHandler consumes raw whale-transaction messages, classifies them
// against the exchange directory and archives them. Classified transactions
// are optionally republished to an enriched topic for downstream consumers.
type WhaleIngestHandler struct {
	topic         string
	enrichedTopic string
	classifier    *flow.Classifier
	store         domrepo.TransactionStore
	producer      *pkgkafka.Producer // nil disables republish
	logger        *logger.Logger
	metrics       domrepo.Metrics
}

func NewWhaleIngestHandler(
	cfg *config.Config,
	classifier *flow.Classifier,
	store domrepo.TransactionStore,
	producer *pkgkafka.Producer,
	log *logger.Logger,
	metrics domrepo.Metrics,
) *WhaleIngestHandler {
	return &WhaleIngestHandler{
		topic:         cfg.Kafka.WhaleTopic,
		enrichedTopic: cfg.Flow.EnrichedTopic,
		classifier:    classifier,
		store:         store,
		producer:      producer,
		logger:        log.With("whale_ingest"),
		metrics:       metrics,
	}
}

func (h *WhaleIngestHandler) Topic() string { return h.topic }

// whaleMessage is the raw upstream payload.
type whaleMessage struct {
	ID         string  `json:"id"`
	Hash       string  `json:"hash"`
	Blockchain string  `json:"blockchain"`
	Symbol     string  `json:"symbol"`
	Amount     float64 `json:"amount"`
	AmountUSD  float64 `json:"amount_usd"`
	Ts         int64   `json:"ts"` // unix seconds or ms
	From       string  `json:"from"`
	To         string  `json:"to"`
}

func (m *whaleMessage) validate() error {
	switch {
	case m.Hash == "":
		return fmt.Errorf("missing hash")
	case m.Symbol == "":
		return fmt.Errorf("missing symbol")
	case m.Blockchain == "":
		return fmt.Errorf("missing blockchain")
	case m.AmountUSD <= 0:
		return fmt.Errorf("non-positive amount_usd")
	case m.Ts <= 0:
		return fmt.Errorf("missing timestamp")
	}
	return nil
}

func (h *WhaleIngestHandler) Handle(ctx context.Context, b []byte) error {
	var m whaleMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("whale_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode whale message: %w", err))
	}
	if err := m.validate(); err != nil {
		h.metrics.RecordError("whale_validate")
		return pkgkafka.Permanent(fmt.Errorf("invalid whale message: %w", err))
	}

	ts := m.Ts
	if ts > 1e11 { // ms
		ts /= 1000
	}
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}

	tx := &models.WhaleTransaction{
		ID:         id,
		Hash:       m.Hash,
		Blockchain: m.Blockchain,
		Symbol:     m.Symbol,
		Amount:     m.Amount,
		AmountUSD:  m.AmountUSD,
		Timestamp:  time.Unix(ts, 0).UTC(),
		From:       models.TxParty{Address: m.From},
		To:         models.TxParty{Address: m.To},
	}
	h.classifier.Classify(tx)

	start := time.Now()
	if err := h.store.Store(ctx, tx); err != nil {
		h.metrics.RecordError("whale_store")
		return err
	}
	h.metrics.RecordLatency("whale_store", time.Since(start).Seconds())
	h.metrics.RecordTransaction(string(tx.Type))

	if h.producer != nil && h.enrichedTopic != "" {
		if err := h.producer.Publish(ctx, h.enrichedTopic, []byte(tx.Symbol), tx); err != nil {
			// Republish is best-effort; the archive already has the row.
			h.logger.Warn("enriched republish failed",
				logger.String("symbol", tx.Symbol), logger.Error(err))
		}
	}

	h.logger.Debug("whale transaction ingested",
		logger.String("symbol", tx.Symbol),
		logger.String("type", string(tx.Type)),
		logger.String("significance", string(tx.Significance)),
		logger.Float64("usd", tx.AmountUSD))
	return nil
}

var _ pkgkafka.MessageHandler = (*WhaleIngestHandler)(nil)

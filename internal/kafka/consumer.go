package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-valuation-service/internal/engine"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
	"github.com/trogers1052/portfolio-valuation-service/internal/portfolio"
)

// LedgerRepository defines the ledger operations the trade consumer needs
type LedgerRepository interface {
	TransactionExistsByExternalID(ctx context.Context, userID, externalID string) (bool, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error
}

// TransactionPublisher announces a transaction once it is in the ledger
type TransactionPublisher interface {
	PublishTransactionRecorded(ctx context.Context, tx *models.Transaction) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer turns broker trade events into ledger transactions.
// Only buys enter the ledger; sells are acknowledged and skipped.
type Consumer struct {
	reader    messageReader
	repo      LedgerRepository
	publisher TransactionPublisher
	now       func() time.Time
	log       zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for trade events. publisher may be nil.
func NewConsumer(brokers []string, topic, groupID string, repo LedgerRepository, publisher TransactionPublisher, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return newConsumer(reader, repo, publisher, log)
}

func newConsumer(reader messageReader, repo LedgerRepository, publisher TransactionPublisher, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader:    reader,
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		log:       log.With().Str("component", "trade_consumer").Logger(),
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting trade consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("trade consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.log.Error().Err(err).Msg("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("error processing message")
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.TradeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade event: %w", err)
	}

	if event.EventType != models.EventTradeDetected {
		c.log.Debug().Str("event_type", event.EventType).Msg("ignoring event")
		return nil
	}
	switch side := strings.ToUpper(event.Data.Side); side {
	case models.TradeSideBuy:
	case models.TradeSideSell:
		c.log.Debug().Str("order_id", event.Data.OrderID).Msg("ignoring sell, ledger is buy-only")
		return nil
	default:
		c.log.Warn().Str("side", side).Str("order_id", event.Data.OrderID).Msg("ignoring trade with unknown side")
		return nil
	}
	if event.Data.UserID == "" || event.Data.OrderID == "" {
		return fmt.Errorf("trade event is missing user_id or order_id")
	}

	exists, err := c.repo.TransactionExistsByExternalID(ctx, event.Data.UserID, event.Data.OrderID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate trade: %w", err)
	}
	if exists {
		c.log.Debug().Str("order_id", event.Data.OrderID).Msg("trade already recorded, skipping")
		return nil
	}

	tx, err := c.convertEvent(event)
	if err != nil {
		return fmt.Errorf("failed to convert trade event: %w", err)
	}
	if err := engine.ValidateTransactions([]models.Transaction{*tx}); err != nil {
		return err
	}

	if err := c.repo.CreateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	c.log.Info().
		Str("user_id", tx.UserID).
		Str("ticker", tx.Ticker).
		Str("quantity", tx.Quantity.String()).
		Str("unit_price", tx.UnitPrice.String()).
		Str("order_id", tx.ExternalID).
		Msg("recorded trade")

	if c.publisher != nil {
		if err := c.publisher.PublishTransactionRecorded(ctx, tx); err != nil {
			c.log.Warn().Err(err).Str("order_id", tx.ExternalID).Msg("failed to publish transaction")
		}
	}
	return nil
}

func (c *Consumer) convertEvent(event models.TradeEvent) (*models.Transaction, error) {
	data := event.Data

	quantity, err := decimal.NewFromString(data.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %s: %w", data.Quantity, err)
	}
	price, err := decimal.NewFromString(data.AveragePrice)
	if err != nil {
		return nil, fmt.Errorf("invalid price %s: %w", data.AveragePrice, err)
	}

	tx := portfolio.NormalizeTransaction(models.Transaction{
		UserID:     data.UserID,
		Ticker:     data.Symbol,
		Name:       data.Name,
		AssetType:  data.AssetType,
		Quantity:   quantity,
		UnitPrice:  price,
		TradeDate:  c.executedAt(data.ExecutedAt),
		ExternalID: data.OrderID,
	})
	return &tx, nil
}

// executedAt parses the broker timestamp, falling back to now when absent or malformed
func (c *Consumer) executedAt(raw *string) time.Time {
	if raw == nil || *raw == "" {
		return c.now()
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, *raw); err == nil {
			return t
		}
	}
	c.log.Warn().Str("executed_at", *raw).Msg("unparseable executed_at, using current time")
	return c.now()
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

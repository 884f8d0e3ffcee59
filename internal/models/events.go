package models

import "time"

// Ledger event types
const (
	EventTradeDetected       = "TRADE_DETECTED"
	EventTransactionRecorded = "TRANSACTION_RECORDED"
)

// Trade side constants
const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"
)

// TradeEvent is a broker trade notification consumed from Kafka
type TradeEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Data      TradeEventData `json:"data"`
}

// TradeEventData carries the broker's trade fields as strings
type TradeEventData struct {
	UserID       string  `json:"user_id"`
	OrderID      string  `json:"order_id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name,omitempty"`
	AssetType    string  `json:"asset_type,omitempty"`
	Side         string  `json:"side"`
	Quantity     string  `json:"quantity"`
	AveragePrice string  `json:"average_price"`
	ExecutedAt   *string `json:"executed_at,omitempty"`
}

// LedgerEvent announces a transaction that entered a user's ledger
type LedgerEvent struct {
	EventID     string       `json:"event_id"`
	EventType   string       `json:"event_type"`
	UserID      string       `json:"user_id"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

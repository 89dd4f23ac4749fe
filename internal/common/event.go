package common

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType int32

const (
	WhaleTradeEventType EventType = iota + 1
)

func (e EventType) Enum() int32 {
	return int32(e)
}

// Event 上游巨鲸监控推送的事件信封
type Event struct {
	Type       EventType  `json:"type"`
	InnerEvent InnerEvent `json:"inner_event"`
}

type InnerEvent interface {
	GetKey() string
}

// WhaleTradeEvent 一笔巨鲸交易事件
type WhaleTradeEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	TransactionType string `json:"transaction_type"`
	TokenID         string `json:"token_id"`
	TokenName       string `json:"token_name"`
	TokenSymbol     string `json:"token_symbol"`
	TokenAddress    string `json:"token_address"`

	TradeSize        string          `json:"trade_size"`
	TradeAmount      decimal.Decimal `json:"trade_amount"`
	WinRate          decimal.Decimal `json:"win_rate"`
	TokenMarketCap   decimal.Decimal `json:"token_market_cap"`
	RugcheckStatus   string          `json:"rugcheck_status"`
	IsTokenFirstSeen bool            `json:"is_token_first_seen"`
}

func (e *WhaleTradeEvent) GetKey() string {
	return e.ID
}

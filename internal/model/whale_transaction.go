package model

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/internal/common"
)

// WhaleTransaction 一笔巨鲸交易信号，创建后不可变
type WhaleTransaction struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	TransactionType common.TransactionType `json:"transaction_type"`

	TokenID      string `json:"token_id"`
	TokenName    string `json:"token_name"`
	TokenSymbol  string `json:"token_symbol"`
	TokenAddress string `json:"token_address"`

	TradeSize        common.TradeSize      `json:"trade_size"`
	TradeAmount      decimal.Decimal       `json:"trade_amount"`     // 按计价货币的交易金额
	WinRate          decimal.Decimal       `json:"win_rate"`         // 来源钱包历史胜率 0-100
	TokenMarketCap   decimal.Decimal       `json:"token_market_cap"` // 代币市值
	RugcheckStatus   common.RugcheckStatus `json:"rugcheck_status"`
	IsTokenFirstSeen bool                  `json:"is_token_first_seen"`
}

var hundred = decimal.NewFromInt(100)

// Validate 校验信号数据质量，不合法的信号在进入决策引擎前被丢弃
func (tx *WhaleTransaction) Validate() error {
	if tx.ID == "" {
		return fmt.Errorf("缺少交易ID")
	}
	if tx.TokenAddress == "" {
		return fmt.Errorf("缺少代币地址")
	}
	if _, err := solana.PublicKeyFromBase58(tx.TokenAddress); err != nil {
		return fmt.Errorf("非法的代币地址 %s: %w", tx.TokenAddress, err)
	}
	switch tx.TransactionType {
	case common.TransactionTypeBuy, common.TransactionTypeSell:
	default:
		return fmt.Errorf("非法的交易方向: %s", tx.TransactionType)
	}
	if tx.TradeAmount.IsNegative() {
		return fmt.Errorf("非法的交易金额: %s", tx.TradeAmount)
	}
	if tx.WinRate.IsNegative() || tx.WinRate.GreaterThan(hundred) {
		return fmt.Errorf("非法的胜率: %s", tx.WinRate)
	}
	if tx.TokenMarketCap.IsNegative() {
		return fmt.Errorf("非法的市值: %s", tx.TokenMarketCap)
	}
	return nil
}

// WhaleTransactionFromEvent 从上游事件构造信号
func WhaleTransactionFromEvent(ev *common.WhaleTradeEvent) *WhaleTransaction {
	return &WhaleTransaction{
		ID:               ev.ID,
		Timestamp:        ev.Timestamp,
		TransactionType:  common.TransactionType(ev.TransactionType),
		TokenID:          ev.TokenID,
		TokenName:        ev.TokenName,
		TokenSymbol:      ev.TokenSymbol,
		TokenAddress:     ev.TokenAddress,
		TradeSize:        common.TradeSize(ev.TradeSize),
		TradeAmount:      ev.TradeAmount,
		WinRate:          ev.WinRate,
		TokenMarketCap:   ev.TokenMarketCap,
		RugcheckStatus:   common.RugcheckStatus(ev.RugcheckStatus),
		IsTokenFirstSeen: ev.IsTokenFirstSeen,
	}
}

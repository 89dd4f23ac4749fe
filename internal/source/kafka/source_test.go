package kafka

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/whale-trader/internal/common"
)

func encodeTradeEvent(t *testing.T) []byte {
	t.Helper()
	data, err := common.EncodeEvent(&common.Event{
		Type: common.WhaleTradeEventType,
		InnerEvent: &common.WhaleTradeEvent{
			ID:              "evt_1",
			Timestamp:       time.Now(),
			TransactionType: string(common.TransactionTypeBuy),
			TokenSymbol:     "BONK",
			TokenAddress:    "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
			TradeSize:       string(common.TradeSizeLarge),
			TradeAmount:     decimal.NewFromInt(5000),
			WinRate:         decimal.NewFromInt(80),
			TokenMarketCap:  decimal.NewFromInt(10_000_000),
			RugcheckStatus:  string(common.RugcheckGood),
		},
	})
	require.NoError(t, err)
	return data
}

func TestHandleMessageDeliversValidEvent(t *testing.T) {
	src := NewSource(SourceConfig{Topic: "whale-events"})

	require.NoError(t, src.handleMessage(encodeTradeEvent(t)))

	select {
	case sig := <-src.Subscribe():
		assert.Equal(t, "evt_1", sig.ID)
		assert.Equal(t, common.TransactionTypeBuy, sig.TransactionType)
	default:
		t.Fatal("expected a signal on the channel")
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	src := NewSource(SourceConfig{Topic: "whale-events"})

	err := src.handleMessage([]byte{0x01})
	require.Error(t, err)

	select {
	case err := <-src.Errors():
		assert.Error(t, err)
	default:
		t.Fatal("decode failure should be reported on the error channel")
	}
}

func TestHandleMessageAfterStopDropsSignal(t *testing.T) {
	src := NewSource(SourceConfig{Topic: "whale-events"})
	data := encodeTradeEvent(t)

	// 未注册的命名消费者，Stop只记日志不报错
	require.NoError(t, src.Stop())

	require.Error(t, src.handleMessage(data))

	_, ok := <-src.Subscribe()
	assert.False(t, ok, "signal channel should be closed after stop")
}

package engine

import (
	"context"
	"hash/crc32"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/internal/book"
	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/exit"
	"github.com/ninja0404/whale-trader/internal/model"
	"github.com/ninja0404/whale-trader/internal/publisher"
	"github.com/ninja0404/whale-trader/internal/repo"
	"github.com/ninja0404/whale-trader/internal/rules"
	"github.com/ninja0404/whale-trader/internal/venue"
	"github.com/ninja0404/whale-trader/pkg/logger"
	"github.com/ninja0404/whale-trader/pkg/utils"
)

const (
	// WorkerCount 信号处理协程数，同一代币的信号固定分配到同一协程
	WorkerCount = 8
)

// Config 决策引擎配置
type Config struct {
	SolPerTrade        decimal.Decimal // 每次跟单投入的本金
	RuleConfig         *rules.Config
	ExitConfig         *exit.Config
	MonitorInterval    time.Duration // 退出条件检查间隔
	ReservationTimeout time.Duration // 额度预留超时
	OpenTimeout        time.Duration // 单次开仓调用超时
	CloseTimeout       time.Duration // 单次平仓调用超时
}

// Stats 引擎运行统计
type Stats struct {
	SignalsProcessed uint64            `json:"signals_processed"`
	SignalsAccepted  uint64            `json:"signals_accepted"`
	SignalsRejected  map[string]uint64 `json:"signals_rejected"`
	PositionsOpened  uint64            `json:"positions_opened"`
	PositionsClosed  uint64            `json:"positions_closed"`
	OpenFailures     uint64            `json:"open_failures"`
	CloseFailures    uint64            `json:"close_failures"`
}

// Engine 跟单决策引擎，串起信号准入、仓位簿与执行场所
// 业务拒绝与执行失败只记录不致命，状态机违例属于程序错误
type Engine struct {
	cfg *Config

	ruleEval *rules.Evaluator
	exitEval *exit.Evaluator
	posBook  *book.Book
	venue    venue.Venue
	prices   venue.PriceSource
	posRepo  repo.PositionRepo
	pubMgr   *publisher.Manager

	workers []*worker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	signalsProcessed atomic.Uint64
	positionsOpened  atomic.Uint64
	positionsClosed  atomic.Uint64
	openFailures     atomic.Uint64
	closeFailures    atomic.Uint64
}

// worker 信号处理协程，按代币地址分片保证同代币串行
type worker struct {
	id      int
	sigChan chan *model.WhaleTransaction
}

// NewEngine 创建决策引擎
func NewEngine(
	cfg *Config,
	posBook *book.Book,
	execVenue venue.Venue,
	prices venue.PriceSource,
	posRepo repo.PositionRepo,
	pubMgr *publisher.Manager,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:      cfg,
		ruleEval: rules.NewEvaluator(),
		exitEval: exit.NewEvaluator(cfg.ExitConfig),
		posBook:  posBook,
		venue:    execVenue,
		prices:   prices,
		posRepo:  posRepo,
		pubMgr:   pubMgr,
		workers:  make([]*worker, WorkerCount),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < WorkerCount; i++ {
		e.workers[i] = &worker{
			id:      i,
			sigChan: make(chan *model.WhaleTransaction, 100),
		}
	}
	return e
}

// Start 启动信号处理协程与持仓监控协程
func (e *Engine) Start() error {
	for _, w := range e.workers {
		e.wg.Add(1)
		go e.runWorker(w)
	}

	e.wg.Add(1)
	go e.runMonitor()

	logger.Info("🎯 决策引擎已启动",
		logger.Int("worker_count", WorkerCount),
		logger.String("sol_per_trade", e.cfg.SolPerTrade.String()),
		logger.String("monitor_interval", e.cfg.MonitorInterval.String()))
	return nil
}

// Stop 停止引擎并等待协程退出
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
	logger.Info("决策引擎已停止")
}

// ProcessSignal 按代币地址分发信号，通道满时丢弃
func (e *Engine) ProcessSignal(sig *model.WhaleTransaction) {
	hash := crc32.ChecksumIEEE([]byte(sig.TokenAddress))
	w := e.workers[int(hash)%WorkerCount]

	select {
	case w.sigChan <- sig:
	case <-e.ctx.Done():
	default:
		// 通道满了，丢弃信号并记录警告
		logger.Warn("⚠️ Worker通道已满，丢弃信号",
			logger.Int("worker_id", w.id),
			logger.String("signal_id", sig.ID),
			logger.String("token", sig.TokenAddress))
	}
}

// GetStats 引擎运行统计
func (e *Engine) GetStats() *Stats {
	accepted, rejected := e.ruleEval.Stats()
	return &Stats{
		SignalsProcessed: e.signalsProcessed.Load(),
		SignalsAccepted:  accepted,
		SignalsRejected:  rejected,
		PositionsOpened:  e.positionsOpened.Load(),
		PositionsClosed:  e.positionsClosed.Load(),
		OpenFailures:     e.openFailures.Load(),
		CloseFailures:    e.closeFailures.Load(),
	}
}

func (e *Engine) runWorker(w *worker) {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case sig := <-w.sigChan:
			e.handleSignal(w, sig)
		}
	}
}

// handleSignal 单笔信号的完整决策流程
func (e *Engine) handleSignal(w *worker, sig *model.WhaleTransaction) {
	e.signalsProcessed.Add(1)

	// 准入评估基于仓位簿快照，最终额度由 Reserve 原子保证
	decision := e.ruleEval.Evaluate(sig, e.cfg.RuleConfig, e.posBook.Snapshot())
	if !decision.Accept {
		logger.Debug("信号被拒绝",
			logger.Int("worker_id", w.id),
			logger.String("signal_id", sig.ID),
			logger.String("token", sig.TokenSymbol),
			logger.String("reason", decision.Reason))
		return
	}

	logger.Info("✅ 信号通过风控",
		logger.Int("worker_id", w.id),
		logger.String("signal_id", sig.ID),
		logger.String("token", sig.TokenSymbol),
		logger.String("reason", decision.Reason))

	// 预留额度，快照评估到此处之间的并发抢占在这里兜底
	pos, err := e.posBook.Reserve(sig, e.cfg.SolPerTrade)
	if err != nil {
		if errors.Is(err, book.ErrMaxPositions) || errors.Is(err, book.ErrDuplicateToken) {
			logger.Info("预留额度失败，放弃信号",
				logger.String("signal_id", sig.ID),
				logger.FieldErr(err))
			return
		}
		e.surfaceInvariant("reserve", err)
		return
	}
	e.persist(pos)

	e.openPosition(pos, sig)
}

// openPosition 调用执行场所开仓，场外调用不持有仓位簿锁
func (e *Engine) openPosition(pos *model.Position, sig *model.WhaleTransaction) {
	// 预留超时兜底，场所长时间无响应时释放额度
	timer := time.AfterFunc(e.cfg.ReservationTimeout, func() {
		failed, err := e.posBook.Abort(pos.ID, common.AbortReasonTimedOut)
		if err != nil {
			// 成交确认先于超时完成，属正常竞争
			return
		}
		e.openFailures.Add(1)
		e.persist(failed)
		e.pubMgr.Publish(&publisher.PositionEvent{Kind: publisher.EventOpenFailed, Position: failed})
		logger.Warn("⏰ 预留超时，已释放额度",
			logger.String("position_id", pos.ID),
			logger.String("token", pos.TokenSymbol))
	})

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.OpenTimeout)
	defer cancel()

	fill, err := e.venue.Open(ctx, pos.TokenAddress, pos.Size)
	timedOut := !timer.Stop()

	if err != nil {
		// 开仓失败不重试，巨鲸信号的时效已过
		if timedOut {
			return
		}
		failed, abortErr := e.posBook.Abort(pos.ID, common.AbortReasonExecutionFailed)
		if abortErr != nil {
			e.surfaceInvariant("abort", abortErr)
			return
		}
		e.openFailures.Add(1)
		failed.FailReason = err.Error()
		e.persist(failed)
		e.pubMgr.Publish(&publisher.PositionEvent{Kind: publisher.EventOpenFailed, Position: failed})
		logger.Warn("开仓失败，额度已释放",
			logger.String("position_id", pos.ID),
			logger.String("token", pos.TokenSymbol),
			logger.FieldErr(err))
		return
	}

	opened, err := e.posBook.CommitOpen(pos.ID, fill.Price, fill.Time)
	if err != nil {
		if timedOut && errors.Is(err, book.ErrPositionNotFound) {
			// 超时回滚先于成交确认，仓位已按失败处理
			logger.Warn("成交确认晚于预留超时，放弃本次成交",
				logger.String("position_id", pos.ID))
			return
		}
		e.surfaceInvariant("commitOpen", err)
		return
	}

	e.positionsOpened.Add(1)
	e.persist(opened)
	e.pubMgr.Publish(&publisher.PositionEvent{Kind: publisher.EventPositionOpened, Position: opened})
}

// ForceClose 按当前市价手动平掉指定仓位，不等退出条件触发
func (e *Engine) ForceClose(positionID string) error {
	snap := e.posBook.Snapshot()
	var pos *model.Position
	for _, p := range snap.Positions {
		if p.ID == positionID {
			pos = p
			break
		}
	}
	if pos == nil {
		return book.ErrPositionNotFound
	}
	if pos.State != common.PositionOpen {
		return errors.Wrapf(book.ErrInvalidTransition, "position %s in state %s", pos.ID, pos.State)
	}

	price, err := e.prices.Price(e.ctx, pos.TokenAddress)
	if err != nil {
		return errors.Wrap(err, "query current price")
	}

	logger.Info("✋ 手动平仓",
		logger.String("position_id", pos.ID),
		logger.String("token", pos.TokenSymbol),
		logger.String("price", price.String()))

	e.closePosition(pos.ID, &model.ExitSignal{
		Reason:  common.ExitReasonManual,
		PnlPct:  model.PnlPct(pos.EntryPrice, price),
		Price:   price,
		Message: "manual close",
	})
	return nil
}

// runMonitor 周期性检查所有持仓的退出条件
func (e *Engine) runMonitor() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.checkExits()
		}
	}
}

func (e *Engine) checkExits() {
	snap := e.posBook.Snapshot()
	now := time.Now()

	for _, pos := range snap.Positions {
		if pos.State != common.PositionOpen {
			continue
		}

		price, err := e.prices.Price(e.ctx, pos.TokenAddress)
		if err != nil {
			logger.Error("查询价格失败",
				logger.String("token", pos.TokenAddress),
				logger.FieldErr(err))
			continue
		}

		exitSig := e.exitEval.Evaluate(pos, price, now)
		if exitSig == nil {
			continue
		}

		logger.Info("🚪 触发退出条件",
			logger.String("position_id", pos.ID),
			logger.String("token", pos.TokenSymbol),
			logger.String("reason", string(exitSig.Reason)),
			logger.String("pnl_pct", exitSig.PnlPct.StringFixed(2)))

		e.closePosition(pos.ID, exitSig)
	}
}

// closePosition 触发平仓并等待成交确认，失败时回滚等待下一轮重试
func (e *Engine) closePosition(positionID string, exitSig *model.ExitSignal) {
	pos, transitioned, err := e.posBook.RequestClose(positionID, exitSig.Reason)
	if err != nil {
		if errors.Is(err, book.ErrPositionNotFound) {
			return
		}
		e.surfaceInvariant("requestClose", err)
		return
	}
	if !transitioned {
		// 上一轮触发的平仓还未完结
		return
	}
	e.persist(pos)

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.CloseTimeout)
	defer cancel()

	fill, err := e.venue.Close(ctx, pos.ID, pos.TokenAddress, pos.Size)
	if err != nil {
		e.closeFailures.Add(1)
		reverted, revertErr := e.posBook.RevertClose(pos.ID)
		if revertErr != nil {
			e.surfaceInvariant("revertClose", revertErr)
			return
		}
		e.persist(reverted)
		logger.Warn("平仓失败，已回滚等待重试",
			logger.String("position_id", pos.ID),
			logger.String("token", pos.TokenSymbol),
			logger.FieldErr(err))
		return
	}

	closed, err := e.posBook.CommitClose(pos.ID, fill.Price, exitSig.Reason, fill.Time)
	if err != nil {
		e.surfaceInvariant("commitClose", err)
		return
	}

	e.positionsClosed.Add(1)
	e.persist(closed)
	e.pubMgr.Publish(&publisher.PositionEvent{Kind: publisher.EventPositionClosed, Position: closed})
}

// persist 写穿落盘，失败只记错误，仓位簿内存状态仍是事实来源
func (e *Engine) persist(pos *model.Position) {
	if e.posRepo == nil {
		return
	}
	if err := e.posRepo.Save(pos); err != nil {
		logger.Error("仓位落盘失败",
			logger.String("position_id", pos.ID),
			logger.String("state", string(pos.State)),
			logger.FieldErr(err))
	}
}

// surfaceInvariant 状态机违例直接暴露，这是正确性bug而非业务失败
func (e *Engine) surfaceInvariant(op string, err error) {
	logger.DPanic("❌ 仓位状态机违例",
		logger.String("op", op),
		logger.FieldErr(err),
		logger.FieldStack(utils.GetStack()))
}

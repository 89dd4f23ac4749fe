package source

import (
	"context"
	"sync"

	"github.com/ninja0404/whale-trader/internal/model"
)

// SignalSource 巨鲸信号数据源接口
type SignalSource interface {
	// Start 启动数据源
	Start(ctx context.Context) error

	// Stop 停止数据源
	Stop() error

	// Subscribe 订阅信号流
	Subscribe() <-chan *model.WhaleTransaction

	// Errors 错误通道
	Errors() <-chan error

	// String 数据源名称
	String() string
}

// Manager 数据源管理器，把多个数据源汇聚成一条信号流
type Manager struct {
	sources    []SignalSource
	signalChan chan *model.WhaleTransaction
	errorChan  chan error
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager 创建数据源管理器
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sources:    make([]SignalSource, 0),
		signalChan: make(chan *model.WhaleTransaction, 10_000), // 缓冲通道
		errorChan:  make(chan error, 100),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// AddSource 添加数据源
func (m *Manager) AddSource(source SignalSource) {
	m.sources = append(m.sources, source)
}

// Start 启动所有数据源
func (m *Manager) Start() error {
	for _, source := range m.sources {
		if err := source.Start(m.ctx); err != nil {
			return err
		}

		// 启动协程监听每个数据源
		m.wg.Add(1)
		go func(src SignalSource) {
			defer m.wg.Done()
			m.listenSource(src)
		}(source)
	}

	return nil
}

// Stop 停止所有数据源
func (m *Manager) Stop() error {
	// 取消上下文
	m.cancel()

	// 停止所有数据源
	for _, source := range m.sources {
		if err := source.Stop(); err != nil {
			return err
		}
	}

	// 监听协程全部退出后才能关闭汇聚通道
	m.wg.Wait()
	close(m.signalChan)
	close(m.errorChan)

	return nil
}

// Signals 获取汇聚后的信号流
func (m *Manager) Signals() <-chan *model.WhaleTransaction {
	return m.signalChan
}

// Errors 获取错误流
func (m *Manager) Errors() <-chan error {
	return m.errorChan
}

// listenSource 监听单个数据源
func (m *Manager) listenSource(source SignalSource) {
	sigChan := source.Subscribe()
	errChan := source.Errors()

	for {
		select {
		case <-m.ctx.Done():
			return
		case sig, ok := <-sigChan:
			if !ok {
				return
			}
			select {
			case m.signalChan <- sig:
			case <-m.ctx.Done():
				return
			}
		case err, ok := <-errChan:
			if !ok {
				return
			}
			select {
			case m.errorChan <- err:
			case <-m.ctx.Done():
				return
			}
		}
	}
}

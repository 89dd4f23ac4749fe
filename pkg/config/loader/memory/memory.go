package memory

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ninja0404/whale-trader/pkg/config/loader"
	"github.com/ninja0404/whale-trader/pkg/config/reader/json"
	"github.com/ninja0404/whale-trader/pkg/config/source"
)

type memory struct {
	exit chan bool
	opts loader.Options

	sync.RWMutex
	// 最新合并快照
	snap *loader.Snapshot
	// 各数据源最新的ChangeSet，按加载顺序合并
	sets []*source.ChangeSet

	sources  []source.Source
	watchers []*watcher
}

type watcher struct {
	exit    chan bool
	memory  *memory
	updates chan *loader.Snapshot
}

func (m *memory) watch(idx int, s source.Source) {
	// 数据源监听失败时退避重试
	watch := func(idx int, s source.Source) error {
		w, err := s.Watch()
		if err != nil {
			return err
		}
		defer w.Stop()

		done := make(chan bool)
		go func() {
			select {
			case <-done:
			case <-m.exit:
			}
			w.Stop()
		}()
		defer close(done)

		for {
			cs, err := w.Next()
			if err != nil {
				return err
			}

			m.Lock()
			m.sets[idx] = cs
			m.Unlock()

			if err := m.reload(); err != nil {
				return err
			}
		}
	}

	for {
		select {
		case <-m.exit:
			return
		default:
		}

		if err := watch(idx, s); err != nil {
			time.Sleep(time.Second)
		}
	}
}

// reload 重新合并所有ChangeSet并通知监听者
func (m *memory) reload() error {
	m.Lock()

	set, err := m.opts.Reader.Merge(m.sets...)
	if err != nil {
		m.Unlock()
		return err
	}

	m.snap = &loader.Snapshot{
		ChangeSet: set,
		Version:   genVer(),
	}

	watchers := make([]*watcher, len(m.watchers))
	copy(watchers, m.watchers)

	m.Unlock()

	for _, w := range watchers {
		select {
		case w.updates <- loader.Copy(m.snap):
		default:
		}
	}

	return nil
}

func (m *memory) Load(sources ...source.Source) error {
	for _, s := range sources {
		set, err := s.Read()
		if err != nil {
			return fmt.Errorf("读取数据源 %s 失败: %w", s.String(), err)
		}

		m.Lock()
		m.sources = append(m.sources, s)
		m.sets = append(m.sets, set)
		idx := len(m.sets) - 1
		m.Unlock()

		go m.watch(idx, s)
	}

	return m.reload()
}

func (m *memory) Snapshot() (*loader.Snapshot, error) {
	m.RLock()
	defer m.RUnlock()

	if m.snap == nil {
		return nil, errors.New("没有可用的配置快照")
	}

	return loader.Copy(m.snap), nil
}

func (m *memory) Sync() error {
	m.Lock()
	sources := make([]source.Source, len(m.sources))
	copy(sources, m.sources)
	m.Unlock()

	for idx, s := range sources {
		set, err := s.Read()
		if err != nil {
			return err
		}
		m.Lock()
		m.sets[idx] = set
		m.Unlock()
	}

	return m.reload()
}

func (m *memory) Watch() (loader.Watcher, error) {
	w := &watcher{
		exit:    make(chan bool),
		memory:  m,
		updates: make(chan *loader.Snapshot, 1),
	}

	m.Lock()
	m.watchers = append(m.watchers, w)
	m.Unlock()

	return w, nil
}

func (m *memory) Close() error {
	select {
	case <-m.exit:
	default:
		close(m.exit)
	}
	return nil
}

func (m *memory) String() string {
	return "memory"
}

func (w *watcher) Next() (*loader.Snapshot, error) {
	select {
	case <-w.exit:
		return nil, source.ErrWatcherStopped
	case snap := <-w.updates:
		return snap, nil
	}
}

func (w *watcher) Stop() error {
	select {
	case <-w.exit:
	default:
		close(w.exit)
	}
	return nil
}

func genVer() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// NewLoader 创建内存加载器
func NewLoader(opts ...loader.Option) loader.Loader {
	options := loader.NewOptions(opts...)
	if options.Reader == nil {
		options.Reader = json.NewReader()
	}

	m := &memory{
		exit: make(chan bool),
		opts: options,
	}

	if len(options.Source) > 0 {
		if err := m.Load(options.Source...); err != nil {
			panic(err)
		}
	}

	return m
}

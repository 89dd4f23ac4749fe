package loader

import (
	"github.com/ninja0404/whale-trader/pkg/config/reader"
	"github.com/ninja0404/whale-trader/pkg/config/source"
)

// Loader 管理多个数据源的加载与合并
type Loader interface {
	// Close 停止加载器
	Close() error
	// Load 加载数据源
	Load(...source.Source) error
	// Snapshot 获取当前合并后的快照
	Snapshot() (*Snapshot, error)
	// Sync 强制同步所有数据源
	Sync() error
	// Watch 监听配置变化
	Watch() (Watcher, error)
	// String 加载器名称
	String() string
}

// Watcher 配置快照变更监听器
type Watcher interface {
	Next() (*Snapshot, error)
	Stop() error
}

// Snapshot 某一时刻合并后的配置
type Snapshot struct {
	// 合并后的ChangeSet
	ChangeSet *source.ChangeSet
	// 快照版本号
	Version string
}

// Copy 深拷贝快照
func Copy(s *Snapshot) *Snapshot {
	cs := *(s.ChangeSet)

	return &Snapshot{
		ChangeSet: &cs,
		Version:   s.Version,
	}
}

type Options struct {
	Reader reader.Reader
	Source []source.Source
}

type Option func(o *Options)

func NewOptions(opts ...Option) Options {
	options := Options{}
	for _, o := range opts {
		o(&options)
	}
	return options
}

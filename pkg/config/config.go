package config

import (
	"sync"

	"github.com/ninja0404/whale-trader/pkg/config/loader"
	"github.com/ninja0404/whale-trader/pkg/config/loader/memory"
	"github.com/ninja0404/whale-trader/pkg/config/reader"
	"github.com/ninja0404/whale-trader/pkg/config/reader/json"
	"github.com/ninja0404/whale-trader/pkg/config/source"
)

// Config 配置管理入口，组合加载器和读取器
type Config interface {
	// Load 加载并合并数据源
	Load(source ...source.Source) error
	// Scan 把全部配置反序列化到v
	Scan(v interface{}) error
	// Get 按路径获取配置值
	Get(path ...string) reader.Value
	// Bytes 获取合并后的原始配置
	Bytes() []byte
	// Sync 强制重新读取所有数据源
	Sync() error
	// Close 停止配置管理
	Close() error
}

type Options struct {
	Loader loader.Loader
	Reader reader.Reader
	Source []source.Source
}

type Option func(o *Options)

type config struct {
	opts Options

	sync.RWMutex
	// 当前快照对应的Values
	snap *loader.Snapshot
	vals reader.Values
}

// NewConfig 创建配置管理实例
func NewConfig(opts ...Option) (Config, error) {
	options := Options{
		Loader: memory.NewLoader(),
		Reader: json.NewReader(),
	}

	for _, o := range opts {
		o(&options)
	}

	c := &config{
		opts: options,
	}

	if len(options.Source) > 0 {
		if err := c.Load(options.Source...); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *config) refresh() error {
	snap, err := c.opts.Loader.Snapshot()
	if err != nil {
		return err
	}

	vals, err := c.opts.Reader.Values(snap.ChangeSet)
	if err != nil {
		return err
	}

	c.Lock()
	c.snap = snap
	c.vals = vals
	c.Unlock()

	return nil
}

func (c *config) Load(sources ...source.Source) error {
	if err := c.opts.Loader.Load(sources...); err != nil {
		return err
	}
	return c.refresh()
}

func (c *config) Scan(v interface{}) error {
	c.RLock()
	defer c.RUnlock()
	return c.vals.Scan(v)
}

func (c *config) Get(path ...string) reader.Value {
	c.RLock()
	defer c.RUnlock()
	return c.vals.Get(path...)
}

func (c *config) Bytes() []byte {
	c.RLock()
	defer c.RUnlock()
	return c.vals.Bytes()
}

func (c *config) Sync() error {
	if err := c.opts.Loader.Sync(); err != nil {
		return err
	}
	return c.refresh()
}

func (c *config) Close() error {
	return c.opts.Loader.Close()
}

// 默认实例，进程启动时加载一次
var (
	defaultConfig Config
	defaultOnce   sync.Once
)

func defaultInstance() Config {
	defaultOnce.Do(func() {
		c, err := NewConfig()
		if err != nil {
			panic(err)
		}
		defaultConfig = c
	})
	return defaultConfig
}

// Load 使用默认实例加载数据源
func Load(sources ...source.Source) error {
	return defaultInstance().Load(sources...)
}

// Scan 把默认实例的全部配置反序列化到v
func Scan(v interface{}) error {
	return defaultInstance().Scan(v)
}

// Get 按路径获取默认实例的配置值
func Get(path ...string) reader.Value {
	return defaultInstance().Get(path...)
}

// Bytes 获取默认实例合并后的原始配置
func Bytes() []byte {
	return defaultInstance().Bytes()
}

// Sync 强制默认实例重新读取数据源
func Sync() error {
	return defaultInstance().Sync()
}

// Close 关闭默认实例
func Close() error {
	return defaultInstance().Close()
}

package source

import (
	"crypto/md5"
	"errors"
	"fmt"
	"time"
)

// ErrWatcherStopped 监听器已停止
var ErrWatcherStopped = errors.New("watcher stopped")

// Source 配置数据源接口
type Source interface {
	Read() (*ChangeSet, error)
	Write(*ChangeSet) error
	Watch() (Watcher, error)
	String() string
}

// ChangeSet 一次配置读取的快照
type ChangeSet struct {
	Data      []byte
	Checksum  string
	Format    string
	Source    string
	Timestamp time.Time
}

// Watcher 配置变更监听器
type Watcher interface {
	Next() (*ChangeSet, error)
	Stop() error
}

// Sum 计算配置内容的md5校验和
func (c *ChangeSet) Sum() string {
	h := md5.New()
	h.Write(c.Data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

package rotate

import (
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 基于lumberjack的滚动日志写入器
type Logger struct {
	lumberjack.Logger

	// Interval 按时间强制切割的周期，0表示只按大小切割
	Interval time.Duration

	lastRotate time.Time
}

// NewLogger 创建滚动日志写入器
func NewLogger() *Logger {
	return &Logger{
		lastRotate: time.Now(),
	}
}

// Write 写入日志，超过Interval周期时先切割文件
func (l *Logger) Write(p []byte) (n int, err error) {
	if l.Interval > 0 && time.Since(l.lastRotate) >= l.Interval {
		if err := l.Rotate(); err != nil {
			return 0, err
		}
		l.lastRotate = time.Now()
	}
	return l.Logger.Write(p)
}

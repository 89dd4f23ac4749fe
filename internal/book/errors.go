package book

import (
	"github.com/pkg/errors"
)

var (
	// ErrMaxPositions 活跃仓位数已达上限
	ErrMaxPositions = errors.New("max positions reached")

	// ErrDuplicateToken 同一代币已有活跃仓位
	ErrDuplicateToken = errors.New("token already has an active position")

	// ErrPositionNotFound 仓位不存在
	ErrPositionNotFound = errors.New("position not found")

	// ErrInvalidTransition 当前状态不允许该转换，属于程序错误而非业务失败
	ErrInvalidTransition = errors.New("invalid position state transition")
)

package repo

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/model"
)

type PositionRepo interface {
	// Save 按仓位ID写穿，存在则整行更新
	Save(pos *model.Position) error

	// GetOpenPositions 获取所有 open 状态的仓位，进程重启后恢复用
	GetOpenPositions() ([]*model.Position, error)

	// GetByPosID 按仓位ID查询
	GetByPosID(posID string) (*model.Position, error)

	// GetTradingStats 汇总已平仓仓位的盈亏统计
	GetTradingStats() (*TradingStats, error)
}

// TradingStats 已平仓仓位的汇总统计
type TradingStats struct {
	TotalClosed int
	Wins        int
	TotalPnl    decimal.Decimal
}

type positionRepoImpl struct {
	db *gorm.DB
}

func NewPositionRepo(db *gorm.DB) PositionRepo {
	return &positionRepoImpl{
		db: db,
	}
}

// Save 每次状态变更后调用，pos_id 唯一索引保证幂等
func (r *positionRepoImpl) Save(pos *model.Position) error {
	rec := pos.ToRecord()
	return r.db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "pos_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"state", "entry_price", "entry_time",
				"exit_price", "exit_reason", "exit_time",
				"realized_pnl", "fail_reason",
			}),
		}).
		Create(rec).Error
}

func (r *positionRepoImpl) GetOpenPositions() ([]*model.Position, error) {
	var records []*model.PositionRecord

	err := r.db.
		Where("state = ?", string(common.PositionOpen)).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	positions := make([]*model.Position, 0, len(records))
	for _, rec := range records {
		positions = append(positions, model.FromRecord(rec))
	}
	return positions, nil
}

// GetTradingStats 小数精度在DB侧会丢失，改为取回后用decimal累加
func (r *positionRepoImpl) GetTradingStats() (*TradingStats, error) {
	var records []*model.PositionRecord

	err := r.db.
		Where("state = ?", string(common.PositionClosed)).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	stats := &TradingStats{TotalPnl: decimal.Zero}
	for _, rec := range records {
		stats.TotalClosed++
		if rec.RealizedPnl.IsPositive() {
			stats.Wins++
		}
		stats.TotalPnl = stats.TotalPnl.Add(rec.RealizedPnl)
	}
	return stats, nil
}

func (r *positionRepoImpl) GetByPosID(posID string) (*model.Position, error) {
	var rec model.PositionRecord
	if err := r.db.Where("pos_id = ?", posID).First(&rec).Error; err != nil {
		return nil, err
	}
	return model.FromRecord(&rec), nil
}

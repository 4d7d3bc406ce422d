package repository

import (
	"sigbridge/internal/db"
	"sigbridge/internal/logger"
	"sigbridge/internal/model"

	"go.uber.org/zap"
)

type HistoryRepository struct{}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) Save(result model.ReplicationResult) error {
	history := model.NewHistory(result)
	return db.DB.Create(&history).Error
}

// Record saves result and only logs a failure, so a broken database never
// gets in the way of replication.
func (r *HistoryRepository) Record(result model.ReplicationResult) {
	if err := r.Save(result); err != nil {
		logger.Log.Warn("failed to save history",
			zap.Error(err))
	}
}

type Stats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := db.DB.Model(&model.History{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.History{}).
		Where("outcome = ?", model.OutcomeSuccess).
		Count(&stats.Success).Error; err != nil {
		return stats, err
	}

	stats.Failed = stats.Total - stats.Success
	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Order("replicated_at desc").
		Order("id desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetFailed(limit int) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Where("outcome = ?", model.OutcomeTransientFailure).
		Order("replicated_at desc").
		Order("id desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

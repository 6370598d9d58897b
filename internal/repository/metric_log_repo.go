package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

// MetricLogFilter narrows metric log queries.
type MetricLogFilter struct {
	Page     int
	PageSize int
	ExamID   *uint
	UserID   *uint
	Action   models.MetricAction
}

// MetricLogRepository reads the metric audit trail. Entries are only written by
// MetricRepository.ApplyChangeSet.
type MetricLogRepository interface {
	List(ctx context.Context, filter MetricLogFilter) ([]models.MetricLog, int64, error)
}

type metricLogRepository struct {
	db *gorm.DB
}

// NewMetricLogRepository constructs the metric log repository.
func NewMetricLogRepository(db *gorm.DB) MetricLogRepository {
	return &metricLogRepository{db: db}
}

func (r *metricLogRepository) List(ctx context.Context, filter MetricLogFilter) ([]models.MetricLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MetricLog{})

	if filter.ExamID != nil {
		query = query.Where("exam_id = ?", *filter.ExamID)
	}

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query, filter.Page, filter.PageSize)

	var entries []models.MetricLog
	if err := query.Order("date DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if page <= 0 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

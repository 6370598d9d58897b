package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

// ErrStaleChangeSet indicates that a metric scheduled for deletion no longer exists.
var ErrStaleChangeSet = errors.New("metric change set is stale")

const insertBatchSize = 200

// MetricFilter narrows metric queries for one exam.
type MetricFilter struct {
	Page           int
	PageSize       int
	QuestionNumber string
	ScoreType      models.ScoreType
}

// MetricChangeSet is the set of inserts and deletes applied to one exam at once.
type MetricChangeSet struct {
	ExamID uint
	Insert []models.Metric
	Delete []models.Metric
}

// AuditFunc builds the log entries for a change set from the inserted rows (with their
// assigned IDs) and the deleted rows as read inside the transaction.
type AuditFunc func(inserted, deleted []models.Metric) []models.MetricLog

// MetricRepository persists rubric metrics.
type MetricRepository interface {
	ExistsForExam(ctx context.Context, examID uint) (bool, error)
	ListByExam(ctx context.Context, examID uint, filter MetricFilter) ([]models.Metric, int64, error)
	ApplyChangeSet(ctx context.Context, changes MetricChangeSet, audit AuditFunc) ([]models.MetricLog, error)
}

type metricRepository struct {
	db *gorm.DB
}

// NewMetricRepository constructs the metric repository.
func NewMetricRepository(db *gorm.DB) MetricRepository {
	return &metricRepository{db: db}
}

func (r *metricRepository) ExistsForExam(ctx context.Context, examID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Metric{}).
		Where("exam_id = ?", examID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *metricRepository) ListByExam(ctx context.Context, examID uint, filter MetricFilter) ([]models.Metric, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Metric{}).Where("exam_id = ?", examID)

	if filter.QuestionNumber != "" {
		query = query.Where("question_number = ?", filter.QuestionNumber)
	}

	if filter.ScoreType != "" {
		query = query.Where("score_type = ?", filter.ScoreType)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query, filter.Page, filter.PageSize)

	var metrics []models.Metric
	if err := query.Order("id ASC").Find(&metrics).Error; err != nil {
		return nil, 0, err
	}

	return metrics, total, nil
}

// ApplyChangeSet deletes, inserts and records the audit entries in a single transaction.
// Nothing is persisted when any step fails.
func (r *metricRepository) ApplyChangeSet(ctx context.Context, changes MetricChangeSet, audit AuditFunc) ([]models.MetricLog, error) {
	var entries []models.MetricLog

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := r.lockForDelete(tx, changes)
		if err != nil {
			return err
		}

		if len(deleted) > 0 {
			ids := metricIDs(deleted)
			if err := tx.Where("exam_id = ? AND id IN ?", changes.ExamID, ids).Delete(&models.Metric{}).Error; err != nil {
				return fmt.Errorf("delete metrics: %w", err)
			}
		}

		inserted := make([]models.Metric, len(changes.Insert))
		copy(inserted, changes.Insert)
		for i := range inserted {
			inserted[i].ID = 0
			inserted[i].ExamID = changes.ExamID
		}
		if len(inserted) > 0 {
			if err := tx.CreateInBatches(&inserted, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert metrics: %w", err)
			}
		}

		if audit != nil {
			entries = audit(inserted, deleted)
		}
		if len(entries) > 0 {
			if err := tx.CreateInBatches(&entries, insertBatchSize).Error; err != nil {
				return fmt.Errorf("write metric logs: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *metricRepository) lockForDelete(tx *gorm.DB, changes MetricChangeSet) ([]models.Metric, error) {
	if len(changes.Delete) == 0 {
		return nil, nil
	}

	ids := metricIDs(changes.Delete)
	query := tx.Where("exam_id = ? AND id IN ?", changes.ExamID, ids)
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var current []models.Metric
	if err := query.Order("id ASC").Find(&current).Error; err != nil {
		return nil, fmt.Errorf("load metrics for delete: %w", err)
	}
	if len(current) != len(ids) {
		return nil, fmt.Errorf("%w: %d of %d metrics remain", ErrStaleChangeSet, len(current), len(ids))
	}

	return current, nil
}

func metricIDs(metrics []models.Metric) []uint {
	seen := make(map[uint]struct{}, len(metrics))
	ids := make([]uint, 0, len(metrics))
	for _, metric := range metrics {
		if _, ok := seen[metric.ID]; ok {
			continue
		}
		seen[metric.ID] = struct{}{}
		ids = append(ids, metric.ID)
	}
	return ids
}

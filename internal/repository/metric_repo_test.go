package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

func TestMetricRepositoryExistsForExam(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMetricRepository(db)
	ctx := context.Background()

	exists, err := repo.ExistsForExam(ctx, 7)
	require.NoError(t, err)
	require.False(t, exists)

	seedMetrics(t, db, 7, "צעד א", "צעד ב")

	exists, err = repo.ExistsForExam(ctx, 7)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.ExistsForExam(ctx, 8)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestMetricRepositoryListByExamFiltersAndPaginates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMetricRepository(db)
	seedMetrics(t, db, 3, "ראשון", "שני", "שלישי")
	seedMetrics(t, db, 4, "אחר")

	metrics, total, err := repo.ListByExam(context.Background(), 3, MetricFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, metrics, 3)
	require.Equal(t, "ראשון", metrics[0].RuleDescription, "expected insertion order")

	metrics, total, err = repo.ListByExam(context.Background(), 3, MetricFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, metrics, 1)
	require.Equal(t, "שלישי", metrics[0].RuleDescription)

	title := models.Metric{ExamID: 3, QuestionNumber: models.StringPtr("2"), RuleDescription: "כותרת", ScoreType: models.ScoreTypeQuestionTitle}
	require.NoError(t, db.Create(&title).Error)

	metrics, total, err = repo.ListByExam(context.Background(), 3, MetricFilter{QuestionNumber: "2", ScoreType: models.ScoreTypeQuestionTitle})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, title.ID, metrics[0].ID)
}

func TestMetricRepositoryApplyChangeSetWritesAuditInSameTransaction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMetricRepository(db)
	existing := seedMetrics(t, db, 5, "ישן")

	changes := MetricChangeSet{
		ExamID: 5,
		Delete: existing,
		Insert: []models.Metric{
			{QuestionNumber: models.StringPtr("1"), RuleDescription: "חדש", Score: models.IntPtr(10), ScoreType: models.ScoreTypeScore},
			{QuestionNumber: models.StringPtr("1"), RuleDescription: "חלופה", ScoreType: models.ScoreTypeAlternativeSolution},
		},
	}

	var seenInserted, seenDeleted []models.Metric
	entries, err := repo.ApplyChangeSet(context.Background(), changes, func(inserted, deleted []models.Metric) []models.MetricLog {
		seenInserted, seenDeleted = inserted, deleted
		return logsFor(inserted, deleted)
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Len(t, seenInserted, 2)
	for _, metric := range seenInserted {
		require.NotZero(t, metric.ID)
		require.Equal(t, uint(5), metric.ExamID)
	}
	require.Equal(t, existing[0].ID, seenDeleted[0].ID)

	stored, total, err := repo.ListByExam(context.Background(), 5, MetricFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "חדש", stored[0].RuleDescription)

	examID := uint(5)
	logs, total, err := NewMetricLogRepository(db).List(context.Background(), MetricLogFilter{ExamID: &examID})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	actions := map[models.MetricAction]int{}
	for _, entry := range logs {
		actions[entry.Action]++
	}
	require.Equal(t, 2, actions[models.MetricActionCreated])
	require.Equal(t, 1, actions[models.MetricActionDeleted])
}

func TestMetricRepositoryApplyChangeSetRejectsStaleDeletes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMetricRepository(db)
	existing := seedMetrics(t, db, 6, "קיים")
	require.NoError(t, db.Delete(&models.Metric{}, existing[0].ID).Error)

	changes := MetricChangeSet{
		ExamID: 6,
		Delete: existing,
		Insert: []models.Metric{{RuleDescription: "חדש", ScoreType: models.ScoreTypeScore}},
	}
	_, err := repo.ApplyChangeSet(context.Background(), changes, logsFor)
	require.ErrorIs(t, err, ErrStaleChangeSet)

	exists, err := repo.ExistsForExam(context.Background(), 6)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestMetricRepositoryApplyChangeSetRollsBackOnAuditFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMetricRepository(db)
	existing := seedMetrics(t, db, 2, "נשמר")

	blocking := models.MetricLog{ID: 900, MetricID: 1, ExamID: 99, RuleDescription: "x", ScoreType: models.ScoreTypeScore, Action: models.MetricActionCreated, UserID: 1, Date: time.Now()}
	require.NoError(t, db.Create(&blocking).Error)

	changes := MetricChangeSet{
		ExamID: 2,
		Delete: existing,
		Insert: []models.Metric{{RuleDescription: "חדש", ScoreType: models.ScoreTypeScore}},
	}
	_, err := repo.ApplyChangeSet(context.Background(), changes, func(inserted, deleted []models.Metric) []models.MetricLog {
		entries := logsFor(inserted, deleted)
		entries[0].ID = blocking.ID
		return entries
	})
	require.Error(t, err)

	stored, _, err := repo.ListByExam(context.Background(), 2, MetricFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, existing[0].ID, stored[0].ID)

	examID := uint(2)
	_, total, err := NewMetricLogRepository(db).List(context.Background(), MetricLogFilter{ExamID: &examID})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestMetricLogRepositoryListOrdersNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMetricLogRepository(db)
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	for i, action := range []models.MetricAction{models.MetricActionCreated, models.MetricActionDeleted, models.MetricActionCreated} {
		entry := models.MetricLog{
			MetricID:        uint(i + 1),
			ExamID:          1,
			RuleDescription: fmt.Sprintf("כלל %d", i),
			ScoreType:       models.ScoreTypeScore,
			Action:          action,
			UserID:          uint(10 + i%2),
			Date:            base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&entry).Error)
	}

	entries, total, err := repo.List(context.Background(), MetricLogFilter{PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, entries, 2)
	require.Equal(t, uint(3), entries[0].MetricID)

	userID := uint(11)
	entries, total, err = repo.List(context.Background(), MetricLogFilter{UserID: &userID, Action: models.MetricActionDeleted})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, uint(2), entries[0].MetricID)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Metric{}, &models.MetricLog{}))
	return db
}

func seedMetrics(t *testing.T, db *gorm.DB, examID uint, descriptions ...string) []models.Metric {
	t.Helper()
	metrics := make([]models.Metric, 0, len(descriptions))
	for _, description := range descriptions {
		metrics = append(metrics, models.Metric{
			ExamID:          examID,
			QuestionNumber:  models.StringPtr("1"),
			RuleDescription: description,
			Score:           models.IntPtr(5),
			ScoreType:       models.ScoreTypeScore,
		})
	}
	require.NoError(t, db.Create(&metrics).Error)
	return metrics
}

func logsFor(inserted, deleted []models.Metric) []models.MetricLog {
	entries := make([]models.MetricLog, 0, len(inserted)+len(deleted))
	add := func(metric models.Metric, action models.MetricAction) {
		entries = append(entries, models.MetricLog{
			MetricID:        metric.ID,
			ExamID:          metric.ExamID,
			RuleDescription: metric.RuleDescription,
			ScoreType:       metric.ScoreType,
			Action:          action,
			UserID:          1,
			Date:            time.Now().UTC(),
		})
	}
	for _, metric := range inserted {
		add(metric, models.MetricActionCreated)
	}
	for _, metric := range deleted {
		add(metric, models.MetricActionDeleted)
	}
	return entries
}

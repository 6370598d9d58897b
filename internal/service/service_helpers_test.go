package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/repository"
	"github.com/noah-isme/gema-rubric-api/internal/staging"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Metric{}, &models.MetricLog{}))
	return db
}

type eventRecorder struct {
	mu     sync.Mutex
	events []MetricsReconciledEvent
	err    error
}

func (r *eventRecorder) PublishReconciled(ctx context.Context, event MetricsReconciledEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *eventRecorder) published() []MetricsReconciledEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MetricsReconciledEvent(nil), r.events...)
}

type rubricFixture struct {
	svc     RubricService
	db      *gorm.DB
	mini    *miniredis.Miniredis
	store   staging.Store
	metrics repository.MetricRepository
	events  *eventRecorder
}

func newRubricFixture(t *testing.T) rubricFixture {
	t.Helper()
	return newRubricFixtureWithRepo(t, nil)
}

func newRubricFixtureWithRepo(t *testing.T, wrap func(repository.MetricRepository) repository.MetricRepository) rubricFixture {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := setupServiceDB(t)
	metrics := repository.NewMetricRepository(db)
	if wrap != nil {
		metrics = wrap(metrics)
	}
	store := staging.NewRedisStore(client, 10*time.Minute)
	events := &eventRecorder{}

	svc := NewRubricService(metrics, store, events, validator.New(), 1, testLogger())
	svc.(*rubricService).now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }

	return rubricFixture{svc: svc, db: db, mini: mini, store: store, metrics: metrics, events: events}
}

func sampleRubricLines() []string {
	return []string{
		"כללי",
		"יש לכתוב בעט בלבד",
		"שאלה 1 – מערכים",
		"סעיף א – 20%",
		"אתחול נכון – 5%",
		"הורדות:",
		"שגיאת חישוב – להוריד 3%",
	}
}

func countLogs(t *testing.T, db *gorm.DB, action models.MetricAction) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.MetricLog{}).Where("action = ?", action).Count(&count).Error)
	return count
}

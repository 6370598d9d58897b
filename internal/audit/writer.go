// Package audit builds the append-only metric log entries for reconciliation batches.
package audit

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

// Stamp identifies who performed a batch of mutations and under which context.
type Stamp struct {
	UserID        uint
	Policy        string
	BatchToken    string
	CorrelationID string
}

// Writer turns persisted inserts and deletes into metric log entries.
type Writer struct {
	now func() time.Time
}

// NewWriter returns a writer that timestamps entries with now.
func NewWriter(now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{now: now}
}

// Entries returns exactly one entry per inserted and per deleted metric, inserts first.
// Inserted metrics must carry their store-assigned ID; deleted metrics must be the rows
// as they were read before deletion.
func (w *Writer) Entries(stamp Stamp, inserted, deleted []models.Metric) []models.MetricLog {
	at := w.now().UTC()
	entries := make([]models.MetricLog, 0, len(inserted)+len(deleted))
	for _, metric := range inserted {
		entries = append(entries, Snapshot(metric, models.MetricActionCreated, stamp, at))
	}
	for _, metric := range deleted {
		entries = append(entries, Snapshot(metric, models.MetricActionDeleted, stamp, at))
	}
	return entries
}

// Snapshot copies the metric's fields into a log entry for the given action.
func Snapshot(metric models.Metric, action models.MetricAction, stamp Stamp, at time.Time) models.MetricLog {
	return models.MetricLog{
		MetricID:        metric.ID,
		ExamID:          metric.ExamID,
		QuestionNumber:  copyString(metric.QuestionNumber),
		Part:            copyString(metric.Part),
		RuleDescription: metric.RuleDescription,
		Score:           copyInt(metric.Score),
		ScoreType:       metric.ScoreType,
		Status:          copyString(metric.Status),
		Action:          action,
		UserID:          stamp.UserID,
		Date:            at,
		Context:         contextOf(stamp),
	}
}

func contextOf(stamp Stamp) datatypes.JSONMap {
	ctx := datatypes.JSONMap{}
	if stamp.Policy != "" {
		ctx["policy"] = stamp.Policy
	}
	if stamp.BatchToken != "" {
		ctx["batch_token"] = stamp.BatchToken
	}
	if stamp.CorrelationID != "" {
		ctx["correlation_id"] = stamp.CorrelationID
	}
	return ctx
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func copyInt(value *int) *int {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// MetricAction identifies the mutation recorded in a metric log entry.
type MetricAction string

const (
	// MetricActionCreated records an inserted metric.
	MetricActionCreated MetricAction = "Created"
	// MetricActionDeleted records a removed metric.
	MetricActionDeleted MetricAction = "Deleted"
)

// MetricLog is the append-only audit record of a metric insert or delete.
// Snapshot columns mirror Metric at the moment of the action.
type MetricLog struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	MetricID        uint              `gorm:"not null;index" json:"metric_id"`
	ExamID          uint              `gorm:"not null;index" json:"exam_id"`
	QuestionNumber  *string           `gorm:"size:32" json:"question_number"`
	Part            *string           `gorm:"size:16" json:"part"`
	RuleDescription string            `gorm:"type:text;not null" json:"rule_description"`
	Score           *int              `json:"score"`
	ScoreType       ScoreType         `gorm:"size:32;not null" json:"score_type"`
	Status          *string           `gorm:"size:255" json:"status"`
	Action          MetricAction      `gorm:"size:16;not null;index" json:"action"`
	UserID          uint              `gorm:"not null;index" json:"user_id"`
	Date            time.Time         `gorm:"not null;index" json:"date"`
	Context         datatypes.JSONMap `gorm:"type:json" json:"context"`
}

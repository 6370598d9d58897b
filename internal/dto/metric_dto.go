package dto

import (
	"time"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

// MetricListRequest defines filters for listing an exam's metrics.
type MetricListRequest struct {
	Page           int
	PageSize       int
	QuestionNumber string
	ScoreType      string
}

// MetricResponse serializes a metric.
type MetricResponse struct {
	ID              uint      `json:"id"`
	ExamID          uint      `json:"exam_id"`
	QuestionNumber  *string   `json:"question_number"`
	Part            *string   `json:"part"`
	RuleDescription string    `json:"rule_description"`
	Score           *int      `json:"score"`
	ScoreType       string    `json:"score_type"`
	Status          *string   `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// MetricListResponse wraps a paginated metric response.
type MetricListResponse struct {
	Items      []MetricResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// MetricLogListRequest defines filters for the metric audit trail.
type MetricLogListRequest struct {
	Page     int
	PageSize int
	Action   string
	UserID   uint
}

// MetricLogResponse serializes an audit entry.
type MetricLogResponse struct {
	ID              uint                   `json:"id"`
	MetricID        uint                   `json:"metric_id"`
	ExamID          uint                   `json:"exam_id"`
	QuestionNumber  *string                `json:"question_number"`
	Part            *string                `json:"part"`
	RuleDescription string                 `json:"rule_description"`
	Score           *int                   `json:"score"`
	ScoreType       string                 `json:"score_type"`
	Status          *string                `json:"status"`
	Action          string                 `json:"action"`
	UserID          uint                   `json:"user_id"`
	Date            time.Time              `json:"date"`
	Context         map[string]interface{} `json:"context"`
}

// MetricLogListResponse wraps a paginated audit trail.
type MetricLogListResponse struct {
	Items      []MetricLogResponse `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}

// NewMetricResponse converts a metric model.
func NewMetricResponse(metric models.Metric) MetricResponse {
	return MetricResponse{
		ID:              metric.ID,
		ExamID:          metric.ExamID,
		QuestionNumber:  metric.QuestionNumber,
		Part:            metric.Part,
		RuleDescription: metric.RuleDescription,
		Score:           metric.Score,
		ScoreType:       string(metric.ScoreType),
		Status:          metric.Status,
		CreatedAt:       metric.CreatedAt,
	}
}

// NewMetricResponses converts a metric slice.
func NewMetricResponses(metrics []models.Metric) []MetricResponse {
	responses := make([]MetricResponse, 0, len(metrics))
	for _, metric := range metrics {
		responses = append(responses, NewMetricResponse(metric))
	}
	return responses
}

// NewMetricLogResponse converts an audit entry.
func NewMetricLogResponse(entry models.MetricLog) MetricLogResponse {
	context := map[string]interface{}{}
	for key, value := range entry.Context {
		context[key] = value
	}
	return MetricLogResponse{
		ID:              entry.ID,
		MetricID:        entry.MetricID,
		ExamID:          entry.ExamID,
		QuestionNumber:  entry.QuestionNumber,
		Part:            entry.Part,
		RuleDescription: entry.RuleDescription,
		Score:           entry.Score,
		ScoreType:       string(entry.ScoreType),
		Status:          entry.Status,
		Action:          string(entry.Action),
		UserID:          entry.UserID,
		Date:            entry.Date,
		Context:         context,
	}
}

package models

import (
	"strings"
	"time"
)

// ScoreType classifies the rubric fact a metric was extracted from.
type ScoreType string

const (
	// ScoreTypeGeneralPenalty marks an exam-wide rule from the general section.
	ScoreTypeGeneralPenalty ScoreType = "GeneralPenalty"
	// ScoreTypeQuestionTitle marks the header record of a question.
	ScoreTypeQuestionTitle ScoreType = "Question Title"
	// ScoreTypePartScore carries the point allocation of a lettered part.
	ScoreTypePartScore ScoreType = "Part Score"
	// ScoreTypeScore marks a scored solution step.
	ScoreTypeScore ScoreType = "Score"
	// ScoreTypeAlternativeSolution marks an alternate accepted approach.
	ScoreTypeAlternativeSolution ScoreType = "Alternative Solution"
	// ScoreTypePenalty marks a reduction for a named mistake.
	ScoreTypePenalty ScoreType = "Penalty"
)

// ScoreTypes lists every score type in emission-independent order.
var ScoreTypes = []ScoreType{
	ScoreTypeGeneralPenalty,
	ScoreTypeQuestionTitle,
	ScoreTypePartScore,
	ScoreTypeScore,
	ScoreTypeAlternativeSolution,
	ScoreTypePenalty,
}

// Valid reports whether the score type belongs to the closed set.
func (t ScoreType) Valid() bool {
	for _, candidate := range ScoreTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// GeneralQuestionNumber is the question number reserved for exam-wide rules.
const GeneralQuestionNumber = "0"

// Metric is one normalized fact extracted from a grading rubric.
type Metric struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ExamID          uint      `gorm:"not null;index" json:"exam_id"`
	QuestionNumber  *string   `gorm:"size:32;index" json:"question_number"`
	Part            *string   `gorm:"size:16" json:"part"`
	RuleDescription string    `gorm:"type:text;not null" json:"rule_description"`
	Score           *int      `json:"score"`
	ScoreType       ScoreType `gorm:"size:32;not null" json:"score_type"`
	Status          *string   `gorm:"size:255" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// QuestionLabel returns the question number or an empty string.
func (m Metric) QuestionLabel() string {
	return deref(m.QuestionNumber)
}

// PartLabel returns the part name or an empty string.
func (m Metric) PartLabel() string {
	return deref(m.Part)
}

// IsGeneral reports whether the metric is an exam-wide rule.
func (m Metric) IsGeneral() bool {
	return m.ScoreType == ScoreTypeGeneralPenalty || m.QuestionLabel() == GeneralQuestionNumber
}

// StringPtr returns a pointer to the trimmed value, or nil when it is blank.
func StringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

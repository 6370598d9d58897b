// Package reconcile decides how a freshly parsed metric batch merges into the metrics
// already stored for an exam.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

// Policy selects how a new batch is merged with stored metrics.
type Policy string

const (
	// PolicyCancel leaves the stored metrics untouched.
	PolicyCancel Policy = "cancel"
	// PolicyReplaceAll deletes every stored metric and inserts the whole batch.
	PolicyReplaceAll Policy = "replace_all"
	// PolicyAppendWithoutDuplication inserts only rows whose key is not stored yet.
	PolicyAppendWithoutDuplication Policy = "append_without_duplication"
	// PolicyAppendWithDuplication inserts the whole batch regardless of overlap.
	PolicyAppendWithDuplication Policy = "append_with_duplication"
)

// Policies lists the accepted policies.
var Policies = []Policy{
	PolicyCancel,
	PolicyReplaceAll,
	PolicyAppendWithoutDuplication,
	PolicyAppendWithDuplication,
}

var (
	// ErrInvalidPolicy indicates an unknown policy selection.
	ErrInvalidPolicy = errors.New("invalid reconciliation policy")
	// ErrExamMismatch indicates a stored metric that belongs to another exam.
	ErrExamMismatch = errors.New("stored metric belongs to another exam")
)

// ParsePolicy normalizes and validates a policy name.
func ParsePolicy(value string) (Policy, error) {
	candidate := Policy(strings.ToLower(strings.TrimSpace(value)))
	for _, policy := range Policies {
		if policy == candidate {
			return policy, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, value)
}

// Plan is the set of mutations a reconciliation requires.
type Plan struct {
	Policy            Policy
	ToInsert          []models.Metric
	ToDelete          []models.Metric
	SkippedDuplicates int
}

// Empty reports whether the plan mutates nothing.
func (p Plan) Empty() bool {
	return len(p.ToInsert) == 0 && len(p.ToDelete) == 0
}

// Key is the duplicate identity of a metric. Score and Status are not part of it.
type Key struct {
	QuestionNumber  string
	HasQuestion     bool
	Part            string
	HasPart         bool
	RuleDescription string
	ScoreType       models.ScoreType
}

// KeyOf returns the duplicate key of a metric.
func KeyOf(metric models.Metric) Key {
	key := Key{RuleDescription: metric.RuleDescription, ScoreType: metric.ScoreType}
	if metric.QuestionNumber != nil {
		key.QuestionNumber, key.HasQuestion = *metric.QuestionNumber, true
	}
	if metric.Part != nil {
		key.Part, key.HasPart = *metric.Part, true
	}
	return key
}

// Reconcile computes the inserts and deletes that merge incoming into existing for the
// given exam under policy. Incoming rows are copied and stamped with the exam, a zero ID
// and no status; existing rows are returned as given.
func Reconcile(policy Policy, examID uint, existing, incoming []models.Metric) (Plan, error) {
	plan := Plan{Policy: policy}

	for _, metric := range existing {
		if metric.ExamID != examID {
			return Plan{}, fmt.Errorf("%w: metric %d has exam %d, want %d", ErrExamMismatch, metric.ID, metric.ExamID, examID)
		}
	}

	switch policy {
	case PolicyCancel:
		return plan, nil
	case PolicyReplaceAll:
		plan.ToDelete = append([]models.Metric(nil), existing...)
		plan.ToInsert = stampAll(examID, incoming)
	case PolicyAppendWithDuplication:
		plan.ToInsert = stampAll(examID, incoming)
	case PolicyAppendWithoutDuplication:
		stored := make(map[Key]struct{}, len(existing))
		for _, metric := range existing {
			stored[KeyOf(metric)] = struct{}{}
		}
		for _, metric := range incoming {
			if _, duplicate := stored[KeyOf(metric)]; duplicate {
				plan.SkippedDuplicates++
				continue
			}
			plan.ToInsert = append(plan.ToInsert, stamp(examID, metric))
		}
	default:
		return Plan{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}

	return plan, nil
}

func stampAll(examID uint, metrics []models.Metric) []models.Metric {
	stamped := make([]models.Metric, 0, len(metrics))
	for _, metric := range metrics {
		stamped = append(stamped, stamp(examID, metric))
	}
	return stamped
}

func stamp(examID uint, metric models.Metric) models.Metric {
	metric.ID = 0
	metric.ExamID = examID
	metric.Status = nil
	return metric
}

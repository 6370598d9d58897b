package dto

import (
	"time"

	"github.com/noah-isme/gema-rubric-api/internal/rubric"
)

// Upload statuses.
const (
	UploadStatusCreated           = "created"
	UploadStatusPendingResolution = "pending_resolution"
)

// RubricLinesRequest uploads a rubric that was already split into paragraphs.
type RubricLinesRequest struct {
	Lines      []string `json:"lines" validate:"required,min=1,max=5000"`
	SourceName string   `json:"source_name" validate:"omitempty,max=255"`
}

// RubricResolveRequest selects the policy for a staged batch.
type RubricResolveRequest struct {
	Token  string `json:"token" validate:"required,uuid"`
	Policy string `json:"policy" validate:"required"`
}

// DroppedLineResponse reports a rubric line that matched no rule.
type DroppedLineResponse struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// RubricUploadResponse describes the outcome of an upload. Token and ExpiresAt are set
// only when the batch awaits a policy choice.
type RubricUploadResponse struct {
	Status        string                `json:"status"`
	ExamID        uint                  `json:"exam_id"`
	SourceName    string                `json:"source_name"`
	Token         string                `json:"token,omitempty"`
	ExpiresAt     *time.Time            `json:"expires_at,omitempty"`
	Policies      []string              `json:"policies,omitempty"`
	ExistingCount int64                 `json:"existing_count"`
	IncomingCount int                   `json:"incoming_count"`
	Inserted      int                   `json:"inserted"`
	Questions     int                   `json:"questions"`
	Dropped       []DroppedLineResponse `json:"dropped"`
}

// ReconciliationResponse summarizes an applied policy.
type ReconciliationResponse struct {
	Token             string `json:"token"`
	ExamID            uint   `json:"exam_id"`
	Policy            string `json:"policy"`
	Inserted          int    `json:"inserted"`
	Deleted           int    `json:"deleted"`
	SkippedDuplicates int    `json:"skipped_duplicates"`
}

// NewDroppedLineResponses converts parser diagnostics. The result is never nil.
func NewDroppedLineResponses(lines []rubric.DroppedLine) []DroppedLineResponse {
	responses := make([]DroppedLineResponse, 0, len(lines))
	for _, line := range lines {
		responses = append(responses, DroppedLineResponse{Number: line.Number, Text: line.Text})
	}
	return responses
}

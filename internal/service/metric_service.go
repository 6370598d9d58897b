package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/repository"
)

const metricSheetName = "Metrics"

// ErrInvalidScoreType indicates a score type filter outside the closed set.
var ErrInvalidScoreType = errors.New("invalid score type")

// MetricService exposes read access to an exam's metrics.
type MetricService interface {
	List(ctx context.Context, examID uint, req dto.MetricListRequest) (dto.MetricListResponse, error)
	Export(ctx context.Context, examID uint) ([]byte, error)
}

type metricService struct {
	repo   repository.MetricRepository
	logger zerolog.Logger
}

// NewMetricService constructs the metric query service.
func NewMetricService(repo repository.MetricRepository, logger zerolog.Logger) MetricService {
	return &metricService{
		repo:   repo,
		logger: logger.With().Str("component", "metric_service").Logger(),
	}
}

func (s *metricService) List(ctx context.Context, examID uint, req dto.MetricListRequest) (dto.MetricListResponse, error) {
	if examID == 0 {
		return dto.MetricListResponse{}, ErrInvalidExam
	}

	filter := repository.MetricFilter{
		Page:           req.Page,
		PageSize:       req.PageSize,
		QuestionNumber: strings.TrimSpace(req.QuestionNumber),
	}
	if scoreType := strings.TrimSpace(req.ScoreType); scoreType != "" {
		filter.ScoreType = models.ScoreType(scoreType)
		if !filter.ScoreType.Valid() {
			return dto.MetricListResponse{}, fmt.Errorf("%w: %q", ErrInvalidScoreType, scoreType)
		}
	}

	metrics, total, err := s.repo.ListByExam(ctx, examID, filter)
	if err != nil {
		return dto.MetricListResponse{}, err
	}

	return dto.MetricListResponse{
		Items:      dto.NewMetricResponses(metrics),
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// Export renders every metric of the exam into a single-sheet workbook in document order.
func (s *metricService) Export(ctx context.Context, examID uint) ([]byte, error) {
	if examID == 0 {
		return nil, ErrInvalidExam
	}

	metrics, _, err := s.repo.ListByExam(ctx, examID, repository.MetricFilter{})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close workbook")
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), metricSheetName); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if err := f.SetSheetView(metricSheetName, 0, &excelize.ViewOptions{RightToLeft: boolPtr(true)}); err != nil {
		return nil, fmt.Errorf("failed to set sheet direction: %w", err)
	}

	headers := []interface{}{"ID", "Question", "Part", "Rule", "Score", "Score Type", "Status"}
	if err := f.SetSheetRow(metricSheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, metric := range metrics {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			metric.ID,
			metric.QuestionLabel(),
			metric.PartLabel(),
			metric.RuleDescription,
			scoreCell(metric.Score),
			string(metric.ScoreType),
			stringCell(metric.Status),
		}
		if err := f.SetSheetRow(metricSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write metric row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Debug().Uint("exam_id", examID).Int("rows", len(metrics)).Msg("metrics exported")
	return buf.Bytes(), nil
}

func scoreCell(score *int) interface{} {
	if score == nil {
		return ""
	}
	return *score
}

func stringCell(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func boolPtr(v bool) *bool {
	return &v
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/repository"
)

// ErrInvalidMetricAction indicates an action filter other than Created or Deleted.
var ErrInvalidMetricAction = errors.New("invalid metric action")

// MetricLogService exposes the metric audit trail.
type MetricLogService interface {
	List(ctx context.Context, examID uint, req dto.MetricLogListRequest) (dto.MetricLogListResponse, error)
}

type metricLogService struct {
	repo   repository.MetricLogRepository
	logger zerolog.Logger
}

// NewMetricLogService constructs the audit trail service.
func NewMetricLogService(repo repository.MetricLogRepository, logger zerolog.Logger) MetricLogService {
	return &metricLogService{
		repo:   repo,
		logger: logger.With().Str("component", "metric_log_service").Logger(),
	}
}

func (s *metricLogService) List(ctx context.Context, examID uint, req dto.MetricLogListRequest) (dto.MetricLogListResponse, error) {
	if examID == 0 {
		return dto.MetricLogListResponse{}, ErrInvalidExam
	}

	filter := repository.MetricLogFilter{Page: req.Page, PageSize: req.PageSize, ExamID: &examID}
	if req.UserID > 0 {
		filter.UserID = &req.UserID
	}

	switch action := strings.ToLower(strings.TrimSpace(req.Action)); action {
	case "":
	case "created":
		filter.Action = models.MetricActionCreated
	case "deleted":
		filter.Action = models.MetricActionDeleted
	default:
		return dto.MetricLogListResponse{}, fmt.Errorf("%w: %q", ErrInvalidMetricAction, req.Action)
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.MetricLogListResponse{}, err
	}

	items := make([]dto.MetricLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewMetricLogResponse(entry))
	}

	return dto.MetricLogListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

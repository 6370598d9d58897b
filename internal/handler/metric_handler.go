package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/service"
	"github.com/noah-isme/gema-rubric-api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MetricHandler exposes read endpoints for an exam's metrics and their audit trail.
type MetricHandler struct {
	metrics service.MetricService
	logs    service.MetricLogService
	logger  zerolog.Logger
}

// NewMetricHandler constructs a metric handler.
func NewMetricHandler(metrics service.MetricService, logs service.MetricLogService, logger zerolog.Logger) *MetricHandler {
	return &MetricHandler{
		metrics: metrics,
		logs:    logs,
		logger:  logger.With().Str("component", "metric_handler").Logger(),
	}
}

// Register wires metric routes.
func (h *MetricHandler) Register(router fiber.Router) {
	router.Get("/exams/:examId/metrics", h.list)
	router.Get("/exams/:examId/metrics/export", h.export)
	router.Get("/exams/:examId/metric-logs", h.listLogs)
}

func (h *MetricHandler) list(c *fiber.Ctx) error {
	examID, err := parseExamID(c)
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
	}

	page, pageSize, err := parsePagination(c)
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
	}

	resp, err := h.metrics.List(c.UserContext(), examID, dto.MetricListRequest{
		Page:           page,
		PageSize:       pageSize,
		QuestionNumber: c.Query("question"),
		ScoreType:      c.Query("score_type"),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidScoreType) {
			return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("list metrics failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load metrics")
	}

	return utils.SendSuccess(c, "metrics retrieved", resp)
}

func (h *MetricHandler) export(c *fiber.Ctx) error {
	examID, err := parseExamID(c)
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
	}

	payload, err := h.metrics.Export(c.UserContext(), examID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("export metrics failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to export metrics")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="exam-%d-metrics.xlsx"`, examID))
	return c.Status(fiber.StatusOK).Send(payload)
}

func (h *MetricHandler) listLogs(c *fiber.Ctx) error {
	examID, err := parseExamID(c)
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
	}

	page, pageSize, err := parsePagination(c)
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
	}

	var userID uint
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, "invalid user_id")
		}
		userID = uint(parsed)
	}

	resp, err := h.logs.List(c.UserContext(), examID, dto.MetricLogListRequest{
		Page:     page,
		PageSize: pageSize,
		Action:   c.Query("action"),
		UserID:   userID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidMetricAction) {
			return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("list metric logs failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load metric logs")
	}

	return utils.SendSuccess(c, "metric logs retrieved", resp)
}

func parsePagination(c *fiber.Ctx) (int, int, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil || page < 0 {
		return 0, 0, errors.New("invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil || pageSize < 0 || pageSize > 500 {
		return 0, 0, errors.New("invalid page_size")
	}
	return page, pageSize, nil
}

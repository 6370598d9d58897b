package handler

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/middleware"
	"github.com/noah-isme/gema-rubric-api/internal/service"
	"github.com/noah-isme/gema-rubric-api/internal/utils"
)

// Error codes returned alongside rubric errors.
const (
	CodeValidation       = "validation_failed"
	CodeDocumentDecode   = "document_unreadable"
	CodeDocumentEmpty    = "document_empty"
	CodeDocumentTooLarge = "document_too_large"
	CodeNoMetrics        = "no_metrics_extracted"
	CodeBatchExpired     = "staged_batch_expired"
	CodeInvalidPolicy    = "invalid_policy"
	CodePersistence      = "persistence_failed"
)

// RubricUploadLimit configures the per-user upload rate limit.
type RubricUploadLimit struct {
	Max    int
	Window time.Duration
}

// RubricHandler exposes rubric upload and reconciliation endpoints.
type RubricHandler struct {
	service   service.RubricService
	validator *validator.Validate
	limit     RubricUploadLimit
	logger    zerolog.Logger
}

// NewRubricHandler constructs a rubric handler.
func NewRubricHandler(service service.RubricService, validate *validator.Validate, limit RubricUploadLimit, logger zerolog.Logger) *RubricHandler {
	return &RubricHandler{
		service:   service,
		validator: validate,
		limit:     limit,
		logger:    logger.With().Str("component", "rubric_handler").Logger(),
	}
}

// Register wires rubric routes.
func (h *RubricHandler) Register(router fiber.Router) {
	router.Post("/exams/:examId/rubric", middleware.RateLimit("rubric-upload", h.limit.Max, h.limit.Window), h.upload)
	router.Post("/rubric/resolutions", h.resolve)
	router.Delete("/rubric/staged/:token", h.discard)
}

func (h *RubricHandler) upload(c *fiber.Ctx) error {
	examID, err := parseExamID(c)
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
	}

	upload, err := h.readUpload(c)
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
	}

	result, err := h.service.Upload(c.UserContext(), examID, upload, rubricActorFromContext(c))
	if err != nil {
		return h.writeError(c, err, "rubric upload failed")
	}

	status := fiber.StatusCreated
	message := "rubric metrics created"
	if result.Status == dto.UploadStatusPendingResolution {
		status = fiber.StatusAccepted
		message = "metrics already exist for exam, choose a reconciliation policy"
	}
	return utils.SendSuccessWithStatus(c, status, message, result)
}

// readUpload accepts either a multipart "file" field or a JSON body with pre-split lines.
func (h *RubricHandler) readUpload(c *fiber.Ctx) (service.DocumentUpload, error) {
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
		var req dto.RubricLinesRequest
		if err := c.BodyParser(&req); err != nil {
			return service.DocumentUpload{}, errors.New("invalid request payload")
		}
		if err := h.validator.Struct(req); err != nil {
			return service.DocumentUpload{}, err
		}
		return service.DocumentUpload{Name: strings.TrimSpace(req.SourceName), Lines: req.Lines}, nil
	}

	file, err := c.FormFile("file")
	if err != nil {
		return service.DocumentUpload{}, errors.New("file is required")
	}

	handle, err := file.Open()
	if err != nil {
		return service.DocumentUpload{}, errors.New("file cannot be opened")
	}
	defer handle.Close()

	payload, err := io.ReadAll(handle)
	if err != nil {
		return service.DocumentUpload{}, errors.New("file cannot be read")
	}

	return service.DocumentUpload{Name: strings.TrimSpace(file.Filename), Payload: payload}, nil
}

func (h *RubricHandler) resolve(c *fiber.Ctx) error {
	var req dto.RubricResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, "invalid request payload")
	}

	result, err := h.service.Resolve(c.UserContext(), req, rubricActorFromContext(c))
	if err != nil {
		return h.writeError(c, err, "rubric resolution failed")
	}

	return utils.SendSuccess(c, "reconciliation applied", result)
}

func (h *RubricHandler) discard(c *fiber.Ctx) error {
	if err := h.service.Discard(c.UserContext(), c.Params("token"), rubricActorFromContext(c)); err != nil {
		return h.writeError(c, err, "discard staged batch failed")
	}
	return utils.SendSuccess(c, "staged batch discarded", nil)
}

func (h *RubricHandler) writeError(c *fiber.Ctx, err error, logMessage string) error {
	switch {
	case isValidationError(err):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, service.ErrInvalidExam):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, service.ErrInvalidPolicy):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeInvalidPolicy, err.Error())
	case errors.Is(err, service.ErrDocumentTooLarge):
		return utils.SendErrorCode(c, fiber.StatusRequestEntityTooLarge, CodeDocumentTooLarge, err.Error())
	case errors.Is(err, service.ErrDocumentEmpty):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeDocumentEmpty, err.Error())
	case errors.Is(err, service.ErrDocumentDecode):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeDocumentDecode, err.Error())
	case errors.Is(err, service.ErrNoMetricsExtracted):
		return utils.SendErrorCode(c, fiber.StatusUnprocessableEntity, CodeNoMetrics, err.Error())
	case errors.Is(err, service.ErrStagedBatchExpired):
		return utils.SendErrorCode(c, fiber.StatusGone, CodeBatchExpired, err.Error())
	case errors.Is(err, service.ErrPersistenceFailed):
		requestLogger(h.logger, c).Error().Err(err).Msg(logMessage)
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, CodePersistence, "failed to persist rubric metrics")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(logMessage)
		return utils.SendError(c, fiber.StatusInternalServerError, logMessage)
	}
}

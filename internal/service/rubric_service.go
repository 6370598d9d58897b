package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-rubric-api/internal/audit"
	"github.com/noah-isme/gema-rubric-api/internal/document"
	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/observability"
	"github.com/noah-isme/gema-rubric-api/internal/reconcile"
	"github.com/noah-isme/gema-rubric-api/internal/repository"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
	"github.com/noah-isme/gema-rubric-api/internal/staging"
)

// PolicyInitial labels the audit entries of a first upload for an exam.
const PolicyInitial = "initial"

// RubricActor is the authenticated user driving an upload or resolution.
type RubricActor struct {
	ID            uint
	Role          string
	CorrelationID string
}

// DocumentUpload carries either a raw file or paragraphs that were already extracted.
// Lines takes precedence when set.
type DocumentUpload struct {
	Name    string
	Payload []byte
	Lines   []string
}

// ReconciliationResult reports what a reconciliation changed.
type ReconciliationResult struct {
	Policy            reconcile.Policy
	Inserted          int
	Deleted           int
	SkippedDuplicates int
}

// RubricService drives the upload, staging and reconciliation workflow.
type RubricService interface {
	Upload(ctx context.Context, examID uint, upload DocumentUpload, actor RubricActor) (dto.RubricUploadResponse, error)
	Resolve(ctx context.Context, req dto.RubricResolveRequest, actor RubricActor) (dto.ReconciliationResponse, error)
	Reconcile(ctx context.Context, policy reconcile.Policy, examID uint, existing, incoming []models.Metric, actor RubricActor, token string) (ReconciliationResult, error)
	Discard(ctx context.Context, token string, actor RubricActor) error
}

type rubricService struct {
	metrics   repository.MetricRepository
	staging   staging.Store
	events    RubricEventPublisher
	validator *validator.Validate
	audit     *audit.Writer
	logger    zerolog.Logger
	tracer    trace.Tracer
	maxSize   int64
	now       func() time.Time
}

// NewRubricService constructs the rubric workflow service. events may be nil.
func NewRubricService(metrics repository.MetricRepository, store staging.Store, events RubricEventPublisher, validate *validator.Validate, maxSizeMB int, logger zerolog.Logger) RubricService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	svc := &rubricService{
		metrics:   metrics,
		staging:   store,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "rubric_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-rubric-api/internal/service/rubric"),
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		now:       time.Now,
	}
	svc.audit = audit.NewWriter(func() time.Time { return svc.now() })
	return svc
}

func (s *rubricService) Upload(ctx context.Context, examID uint, upload DocumentUpload, actor RubricActor) (dto.RubricUploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "rubric.upload", trace.WithAttributes(
		attribute.Int64("rubric.exam_id", int64(examID)),
		attribute.String("rubric.source_name", upload.Name),
	))
	defer span.End()

	if examID == 0 {
		span.SetStatus(codes.Error, "missing exam")
		return dto.RubricUploadResponse{}, ErrInvalidExam
	}

	lines, err := s.decode(upload)
	if err != nil {
		observability.RubricUploads().WithLabelValues("rejected").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return dto.RubricUploadResponse{}, err
	}

	started := time.Now()
	result, err := rubric.Parse(examID, lines)
	observability.RubricParseDuration().Observe(time.Since(started).Seconds())
	if errors.Is(err, rubric.ErrEmptyDocument) {
		observability.RubricUploads().WithLabelValues("rejected").Inc()
		span.SetStatus(codes.Error, "empty document")
		return dto.RubricUploadResponse{}, ErrDocumentEmpty
	}
	if err != nil {
		span.RecordError(err)
		return dto.RubricUploadResponse{}, err
	}

	observability.RubricLines().WithLabelValues("classified").Add(float64(result.Lines - len(result.Dropped)))
	observability.RubricLines().WithLabelValues("dropped").Add(float64(len(result.Dropped)))
	span.SetAttributes(
		attribute.Int("rubric.lines", result.Lines),
		attribute.Int("rubric.metrics", len(result.Metrics)),
		attribute.Int("rubric.dropped", len(result.Dropped)),
	)
	if len(result.Dropped) > 0 {
		s.logger.Warn().
			Uint("exam_id", examID).
			Str("correlation_id", actor.CorrelationID).
			Int("dropped", len(result.Dropped)).
			Int("first_line", result.Dropped[0].Number).
			Msg("rubric lines matched no rule")
	}

	if len(result.Metrics) == 0 {
		observability.RubricUploads().WithLabelValues("rejected").Inc()
		span.SetStatus(codes.Error, "no metrics")
		return dto.RubricUploadResponse{}, ErrNoMetricsExtracted
	}

	response := dto.RubricUploadResponse{
		ExamID:        examID,
		SourceName:    upload.Name,
		IncomingCount: len(result.Metrics),
		Questions:     result.Questions,
		Dropped:       dto.NewDroppedLineResponses(result.Dropped),
	}

	exists, err := s.metrics.ExistsForExam(ctx, examID)
	if err != nil {
		return dto.RubricUploadResponse{}, s.persistenceError(span, "check existing metrics", err)
	}

	if !exists {
		stamp := audit.Stamp{UserID: actor.ID, Policy: PolicyInitial, CorrelationID: actor.CorrelationID}
		changes := repository.MetricChangeSet{ExamID: examID, Insert: result.Metrics}
		if _, err := s.metrics.ApplyChangeSet(ctx, changes, s.auditFor(stamp)); err != nil {
			return dto.RubricUploadResponse{}, s.persistenceError(span, "insert initial metrics", err)
		}

		observability.MetricMutations().WithLabelValues(string(models.MetricActionCreated)).Add(float64(len(result.Metrics)))
		observability.RubricUploads().WithLabelValues(dto.UploadStatusCreated).Inc()
		s.publish(ctx, MetricsReconciledEvent{
			ExamID:        examID,
			Policy:        PolicyInitial,
			Inserted:      len(result.Metrics),
			ActorID:       actor.ID,
			CorrelationID: actor.CorrelationID,
		})

		response.Status = dto.UploadStatusCreated
		response.Inserted = len(result.Metrics)
		s.logger.Info().Uint("exam_id", examID).Int("inserted", response.Inserted).Msg("rubric metrics created")
		return response, nil
	}

	_, existingCount, err := s.metrics.ListByExam(ctx, examID, repository.MetricFilter{PageSize: 1})
	if err != nil {
		return dto.RubricUploadResponse{}, s.persistenceError(span, "count existing metrics", err)
	}

	staged, err := s.staging.Stage(ctx, staging.Batch{
		ExamID:     examID,
		ActorID:    actor.ID,
		SourceName: upload.Name,
		Metrics:    result.Metrics,
		Dropped:    result.Dropped,
		StagedAt:   s.now().UTC(),
	})
	if err != nil {
		return dto.RubricUploadResponse{}, s.persistenceError(span, "stage batch", err)
	}

	observability.RubricUploads().WithLabelValues(dto.UploadStatusPendingResolution).Inc()
	expiresAt := staged.ExpiresAt
	response.Status = dto.UploadStatusPendingResolution
	response.Token = staged.Token
	response.ExpiresAt = &expiresAt
	response.ExistingCount = existingCount
	response.Policies = policyNames()

	s.logger.Info().
		Uint("exam_id", examID).
		Str("token", staged.Token).
		Int64("existing", existingCount).
		Int("incoming", len(result.Metrics)).
		Msg("rubric batch staged for resolution")
	return response, nil
}

func (s *rubricService) Resolve(ctx context.Context, req dto.RubricResolveRequest, actor RubricActor) (dto.ReconciliationResponse, error) {
	policy, err := reconcile.ParsePolicy(req.Policy)
	if err != nil {
		return dto.ReconciliationResponse{}, err
	}
	req.Token = strings.TrimSpace(req.Token)
	if err := s.validator.Struct(req); err != nil {
		return dto.ReconciliationResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "rubric.resolve", trace.WithAttributes(
		attribute.String("rubric.policy", string(policy)),
		attribute.String("rubric.token", req.Token),
	))
	defer span.End()

	staged, err := s.claim(ctx, req.Token, actor)
	if err != nil {
		span.RecordError(err)
		return dto.ReconciliationResponse{}, err
	}
	batch := staged.Batch
	span.SetAttributes(attribute.Int64("rubric.exam_id", int64(batch.ExamID)))

	response := dto.ReconciliationResponse{Token: staged.Token, ExamID: batch.ExamID, Policy: string(policy)}
	if policy == reconcile.PolicyCancel {
		observability.RubricReconciliations().WithLabelValues(string(policy), "ok").Inc()
		s.logger.Info().Uint("exam_id", batch.ExamID).Str("token", staged.Token).Msg("staged rubric batch cancelled")
		return response, nil
	}

	existing, _, err := s.metrics.ListByExam(ctx, batch.ExamID, repository.MetricFilter{})
	if err != nil {
		s.restore(ctx, staged)
		return dto.ReconciliationResponse{}, s.persistenceError(span, "load existing metrics", err)
	}

	result, err := s.Reconcile(ctx, policy, batch.ExamID, existing, batch.Metrics, actor, staged.Token)
	if err != nil {
		s.restore(ctx, staged)
		return dto.ReconciliationResponse{}, err
	}

	response.Inserted = result.Inserted
	response.Deleted = result.Deleted
	response.SkippedDuplicates = result.SkippedDuplicates

	s.publish(ctx, MetricsReconciledEvent{
		ExamID:            batch.ExamID,
		Policy:            string(policy),
		Token:             staged.Token,
		Inserted:          result.Inserted,
		Deleted:           result.Deleted,
		SkippedDuplicates: result.SkippedDuplicates,
		ActorID:           actor.ID,
		CorrelationID:     actor.CorrelationID,
	})

	return response, nil
}

// Reconcile applies policy to the exam's stored metrics and the incoming batch in one
// transaction, recording an audit entry for every inserted and deleted row.
func (s *rubricService) Reconcile(ctx context.Context, policy reconcile.Policy, examID uint, existing, incoming []models.Metric, actor RubricActor, token string) (ReconciliationResult, error) {
	ctx, span := s.tracer.Start(ctx, "rubric.reconcile", trace.WithAttributes(
		attribute.String("rubric.policy", string(policy)),
		attribute.Int64("rubric.exam_id", int64(examID)),
		attribute.Int("rubric.existing", len(existing)),
		attribute.Int("rubric.incoming", len(incoming)),
	))
	defer span.End()

	plan, err := reconcile.Reconcile(policy, examID, existing, incoming)
	if err != nil {
		observability.RubricReconciliations().WithLabelValues(string(policy), "rejected").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "plan failed")
		return ReconciliationResult{}, err
	}

	result := ReconciliationResult{
		Policy:            policy,
		Inserted:          len(plan.ToInsert),
		Deleted:           len(plan.ToDelete),
		SkippedDuplicates: plan.SkippedDuplicates,
	}
	if plan.Empty() {
		observability.RubricReconciliations().WithLabelValues(string(policy), "ok").Inc()
		return result, nil
	}

	stamp := audit.Stamp{UserID: actor.ID, Policy: string(policy), BatchToken: token, CorrelationID: actor.CorrelationID}
	changes := repository.MetricChangeSet{ExamID: examID, Insert: plan.ToInsert, Delete: plan.ToDelete}
	if _, err := s.metrics.ApplyChangeSet(ctx, changes, s.auditFor(stamp)); err != nil {
		observability.RubricReconciliations().WithLabelValues(string(policy), "failed").Inc()
		return ReconciliationResult{}, s.persistenceError(span, "apply reconciliation", err)
	}

	observability.RubricReconciliations().WithLabelValues(string(policy), "ok").Inc()
	observability.MetricMutations().WithLabelValues(string(models.MetricActionCreated)).Add(float64(result.Inserted))
	observability.MetricMutations().WithLabelValues(string(models.MetricActionDeleted)).Add(float64(result.Deleted))
	span.SetAttributes(
		attribute.Int("rubric.inserted", result.Inserted),
		attribute.Int("rubric.deleted", result.Deleted),
		attribute.Int("rubric.skipped", result.SkippedDuplicates),
	)

	s.logger.Info().
		Uint("exam_id", examID).
		Str("policy", string(policy)).
		Int("inserted", result.Inserted).
		Int("deleted", result.Deleted).
		Int("skipped", result.SkippedDuplicates).
		Msg("rubric metrics reconciled")
	return result, nil
}

func (s *rubricService) Discard(ctx context.Context, token string, actor RubricActor) error {
	staged, err := s.claim(ctx, strings.TrimSpace(token), actor)
	if err != nil {
		return err
	}
	s.logger.Info().Uint("exam_id", staged.Batch.ExamID).Str("token", staged.Token).Msg("staged rubric batch discarded")
	return nil
}

// claim loads the batch, checks ownership and removes it from staging so that only one
// caller can act on a token.
func (s *rubricService) claim(ctx context.Context, token string, actor RubricActor) (staging.StagedBatch, error) {
	staged, err := s.staging.Retrieve(ctx, token)
	if errors.Is(err, staging.ErrBatchNotFound) || errors.Is(err, staging.ErrInvalidToken) {
		return staging.StagedBatch{}, ErrStagedBatchExpired
	}
	if err != nil {
		return staging.StagedBatch{}, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	if staged.Batch.ActorID != actor.ID {
		s.logger.Warn().Uint("actor_id", actor.ID).Str("token", token).Msg("staged batch requested by another actor")
		return staging.StagedBatch{}, ErrStagedBatchExpired
	}

	if err := s.staging.Discard(ctx, token); err != nil {
		if errors.Is(err, staging.ErrBatchNotFound) {
			return staging.StagedBatch{}, ErrStagedBatchExpired
		}
		return staging.StagedBatch{}, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	return staged, nil
}

func (s *rubricService) restore(ctx context.Context, staged staging.StagedBatch) {
	if err := s.staging.Restore(ctx, staged); err != nil {
		s.logger.Warn().Err(err).Str("token", staged.Token).Msg("failed to restore staged batch")
	}
}

func (s *rubricService) decode(upload DocumentUpload) ([]string, error) {
	if upload.Lines != nil {
		return upload.Lines, nil
	}

	if int64(len(upload.Payload)) > s.maxSize {
		return nil, ErrDocumentTooLarge
	}

	decoded, err := document.Decode(upload.Name, upload.Payload)
	if errors.Is(err, document.ErrEmptyPayload) {
		return nil, ErrDocumentEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentDecode, err)
	}
	return decoded.Lines, nil
}

func (s *rubricService) auditFor(stamp audit.Stamp) repository.AuditFunc {
	return func(inserted, deleted []models.Metric) []models.MetricLog {
		return s.audit.Entries(stamp, inserted, deleted)
	}
}

func (s *rubricService) publish(ctx context.Context, event MetricsReconciledEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.events.PublishReconciled(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("exam_id", event.ExamID).Msg("failed to publish reconciliation event")
	}
}

func (s *rubricService) persistenceError(span trace.Span, step string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, step)
	s.logger.Error().Err(err).Str("step", step).Msg("rubric persistence failed")
	return fmt.Errorf("%w: %s: %w", ErrPersistenceFailed, step, err)
}

func policyNames() []string {
	names := make([]string, 0, len(reconcile.Policies))
	for _, policy := range reconcile.Policies {
		names = append(names, string(policy))
	}
	return names
}

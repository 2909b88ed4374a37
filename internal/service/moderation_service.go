package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spec-kit/wiki-moderation/internal/changes"
	"github.com/spec-kit/wiki-moderation/internal/config"
	"github.com/spec-kit/wiki-moderation/internal/domain"
	"github.com/spec-kit/wiki-moderation/internal/events"
	"github.com/spec-kit/wiki-moderation/internal/observability"
	"github.com/spec-kit/wiki-moderation/internal/repository"
	apperrors "github.com/spec-kit/wiki-moderation/pkg/util/errorutil"
)

// ModerationService coordinates change-request workflows.
type ModerationService struct {
	requests   repository.ChangeRequestRepository
	entities   repository.EntityRepository
	revisions  repository.RevisionRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	fields     config.ModerationConfig
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// ModerationDependencies bundles collaborators for the moderation service.
type ModerationDependencies struct {
	ChangeRequestRepo repository.ChangeRequestRepository
	EntityRepo        repository.EntityRepository
	RevisionRepo      repository.RevisionRepository
	Dispatcher        events.Dispatcher
	Metrics           *observability.Metrics
	Fields            config.ModerationConfig
	Logger            *zap.Logger
	Clock             func() time.Time
}

// ChangeRequestQuery narrows ListChangeRequests. Empty fields match everything.
type ChangeRequestQuery struct {
	EntityType domain.EntityType
	EntityID   domain.EntityID
	FieldType  string
	Status     domain.ChangeRequestStatus
}

// ChangeRequestView is a request with display labels, and a diff when both values are arrays.
type ChangeRequestView struct {
	Request  domain.ChangeRequest `json:"request"`
	OldLabel string               `json:"oldLabel"`
	NewLabel string               `json:"newLabel"`
	Diff     *changes.ArrayDiff   `json:"diff,omitempty"`
}

// FieldView is the moderator's view of one entity field and its pending requests.
type FieldView struct {
	EntityType   domain.EntityType   `json:"entityType"`
	EntityID     domain.EntityID     `json:"entityId"`
	FieldType    string              `json:"fieldType"`
	Current      any                 `json:"current"`
	CurrentLabel string              `json:"currentLabel"`
	IsArray      bool                `json:"isArray"`
	Pending      []ChangeRequestView `json:"pending"`
	Latest       *ChangeRequestView  `json:"latest,omitempty"`
	Aggregate    *changes.ArrayDiff  `json:"aggregate,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
}

// NewModerationService constructs the service.
func NewModerationService(deps ModerationDependencies) *ModerationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ModerationService{
		requests:   deps.ChangeRequestRepo,
		entities:   deps.EntityRepo,
		revisions:  deps.RevisionRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		fields:     deps.Fields,
		logger:     logger,
		tracer:     otel.Tracer(observability.TracerName),
		now:        clock,
	}
}

// ListChangeRequests returns stored requests matching query, oldest first.
func (s *ModerationService) ListChangeRequests(ctx context.Context, query ChangeRequestQuery) (result []domain.ChangeRequest, err error) {
	ctx, span := s.startSpan(ctx, "ListChangeRequests", attribute.String("entity_type", string(query.EntityType)))
	defer func() { endSpan(span, err) }()

	all, err := s.requests.List(ctx, repository.ChangeRequestFilter{EntityType: query.EntityType, Status: query.Status})
	if err != nil {
		return nil, mapStoreError("list change requests", err)
	}
	if query.EntityType != "" && query.EntityID != "" && query.FieldType != "" {
		return changes.Select(all, query.EntityType, query.EntityID, query.FieldType, query.Status), nil
	}

	result = make([]domain.ChangeRequest, 0, len(all))
	for _, req := range all {
		if query.EntityType != "" && req.EntityType != query.EntityType {
			continue
		}
		if query.EntityID != "" && !req.EntityID.Equal(query.EntityID) {
			continue
		}
		if query.FieldType != "" && req.FieldType != query.FieldType {
			continue
		}
		if query.Status != "" && req.Status != query.Status {
			continue
		}
		result = append(result, req)
	}
	return result, nil
}

// GetChangeRequest returns one request with its display labels.
func (s *ModerationService) GetChangeRequest(ctx context.Context, id string) (view *ChangeRequestView, err error) {
	ctx, span := s.startSpan(ctx, "GetChangeRequest", attribute.String("change_request_id", id))
	defer func() { endSpan(span, err) }()

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError("get change request", err)
	}
	v := describe(*req)
	return &v, nil
}

// CreateChangeRequest validates and stores a new pending request.
func (s *ModerationService) CreateChangeRequest(ctx context.Context, draft domain.ChangeRequestDraft) (created *domain.ChangeRequest, err error) {
	ctx, span := s.startSpan(ctx, "CreateChangeRequest",
		attribute.String("entity_type", string(draft.EntityType)),
		attribute.String("field_type", draft.FieldType))
	defer func() { endSpan(span, err) }()

	draft.FieldType = strings.TrimSpace(draft.FieldType)
	if err := changes.ValidateDraft(draft); err != nil {
		return nil, mapStoreError("validate change request", err)
	}
	if !draft.EntityType.IsKnown() {
		return nil, apperrors.NewValidationError("unknown entity type", map[string]any{"entityType": draft.EntityType})
	}
	if !s.fields.FieldAllowed(draft.EntityType, draft.FieldType) {
		return nil, apperrors.NewValidationError("field does not accept change requests", map[string]any{
			"entityType": draft.EntityType,
			"fieldType":  draft.FieldType,
		})
	}
	if _, err := s.entities.GetByID(ctx, draft.EntityType, draft.EntityID); err != nil {
		return nil, mapStoreError("load entity", err)
	}

	req := &domain.ChangeRequest{
		EntityType:  draft.EntityType,
		EntityID:    draft.EntityID,
		FieldType:   draft.FieldType,
		Action:      draft.Action,
		OldValue:    draft.OldValue,
		NewValue:    draft.NewValue,
		Status:      domain.StatusPending,
		RequestedBy: draft.RequestedBy,
		CreatedAt:   changes.Timestamp(s.now()),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, mapStoreError("create change request", err)
	}

	s.metrics.RecordChangeCreated(string(req.EntityType), string(req.Action))
	s.logger.Info("change request created",
		zap.String("change_request_id", req.ID),
		zap.String("entity_type", string(req.EntityType)),
		zap.String("entity_id", req.EntityID.String()),
		zap.String("field_type", req.FieldType),
		zap.String("action", string(req.Action)))
	s.publishEvent(ctx, events.NewChangeRequestEvent(events.EventChangeRequestCreated, *req, req.RequestedBy,
		events.ChangeRequestCreatedPayload{Action: req.Action, RequestedBy: req.RequestedBy}))
	return req, nil
}

// Approve resolves a pending request as approved. Subscribers of the
// approval event commit the new value to the entity.
func (s *ModerationService) Approve(ctx context.Context, id, approvedBy string) (approved *domain.ChangeRequest, err error) {
	ctx, span := s.startSpan(ctx, "Approve", attribute.String("change_request_id", id))
	defer func() { endSpan(span, err) }()

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError("get change request", err)
	}
	next, err := changes.Approve(*req, approvedBy, s.now())
	if err != nil {
		return nil, mapStoreError("approve change request", err)
	}
	if err := s.requests.SetApproved(ctx, next); err != nil {
		return nil, mapStoreError("approve change request", err)
	}

	s.metrics.RecordChangeResolved(string(next.EntityType), string(next.Status))
	s.logger.Info("change request approved", zap.String("change_request_id", next.ID), zap.String("approved_by", approvedBy))
	s.publishEvent(ctx, events.NewChangeRequestEvent(events.EventChangeRequestApproved, next, approvedBy,
		events.ChangeRequestApprovedPayload{Request: next}))
	return &next, nil
}

// Reject resolves a pending request as rejected.
func (s *ModerationService) Reject(ctx context.Context, id, rejectedBy, reason string) (rejected *domain.ChangeRequest, err error) {
	ctx, span := s.startSpan(ctx, "Reject", attribute.String("change_request_id", id))
	defer func() { endSpan(span, err) }()

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError("get change request", err)
	}
	next, err := changes.Reject(*req, rejectedBy, strings.TrimSpace(reason), s.now())
	if err != nil {
		return nil, mapStoreError("reject change request", err)
	}
	if err := s.requests.SetRejected(ctx, next); err != nil {
		return nil, mapStoreError("reject change request", err)
	}

	s.metrics.RecordChangeResolved(string(next.EntityType), string(next.Status))
	s.logger.Info("change request rejected", zap.String("change_request_id", next.ID), zap.String("rejected_by", rejectedBy))
	s.publishEvent(ctx, events.NewChangeRequestEvent(events.EventChangeRequestRejected, next, rejectedBy,
		events.ChangeRequestRejectedPayload{RequestedBy: next.RequestedBy, Reason: *next.RejectionReason}))
	return &next, nil
}

// DeleteChangeRequest removes a request regardless of status.
func (s *ModerationService) DeleteChangeRequest(ctx context.Context, id, deletedBy string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteChangeRequest", attribute.String("change_request_id", id))
	defer func() { endSpan(span, err) }()

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return mapStoreError("get change request", err)
	}
	if err := s.requests.Delete(ctx, id); err != nil {
		return mapStoreError("delete change request", err)
	}
	s.logger.Info("change request deleted", zap.String("change_request_id", id), zap.String("deleted_by", deletedBy))
	s.publishEvent(ctx, events.NewChangeRequestEvent(events.EventChangeRequestDeleted, *req, deletedBy,
		events.ChangeRequestDeletedPayload{Status: req.Status}))
	return nil
}

// PendingFieldView collects what a moderator needs to review one field.
// Array fields get the aggregated diff of their pending requests; requests
// that cannot be aggregated are listed as warnings.
func (s *ModerationService) PendingFieldView(ctx context.Context, entityType domain.EntityType, entityID domain.EntityID, fieldType string) (view *FieldView, err error) {
	ctx, span := s.startSpan(ctx, "PendingFieldView",
		attribute.String("entity_type", string(entityType)),
		attribute.String("field_type", fieldType))
	defer func() { endSpan(span, err) }()

	entity, err := s.entities.GetByID(ctx, entityType, entityID)
	if err != nil {
		return nil, mapStoreError("load entity", err)
	}
	all, err := s.requests.List(ctx, repository.ChangeRequestFilter{EntityType: entityType, Status: domain.StatusPending})
	if err != nil {
		return nil, mapStoreError("list change requests", err)
	}
	pending := changes.SelectPending(all, entityType, entityID, fieldType)

	current, _ := entity.Field(fieldType)
	view = &FieldView{
		EntityType:   entity.Type,
		EntityID:     entity.ID,
		FieldType:    fieldType,
		Current:      current,
		CurrentLabel: changes.Format(current),
		IsArray:      isArrayField(current, pending),
		Pending:      make([]ChangeRequestView, 0, len(pending)),
	}
	for _, req := range pending {
		view.Pending = append(view.Pending, describe(req))
	}
	if latest, ok := changes.MostRecent(pending); ok {
		v := describe(latest)
		view.Latest = &v
	}

	if view.IsArray {
		diff, aggErr := changes.Aggregate(pending)
		view.Aggregate = &diff
		malformed := changes.MalformedRequests(aggErr)
		s.metrics.RecordMalformed(len(malformed))
		for _, m := range malformed {
			view.Warnings = append(view.Warnings, m.Error())
		}
		if len(malformed) > 0 {
			s.logger.Warn("malformed pending change requests",
				zap.String("entity_type", string(entityType)),
				zap.String("entity_id", entityID.String()),
				zap.String("field_type", fieldType),
				zap.Int("count", len(malformed)))
		}
	}
	return view, nil
}

// GetEntity returns the current snapshot of an entity.
func (s *ModerationService) GetEntity(ctx context.Context, entityType domain.EntityType, id domain.EntityID) (*domain.Entity, error) {
	entity, err := s.entities.GetByID(ctx, entityType, id)
	if err != nil {
		return nil, mapStoreError("load entity", err)
	}
	return entity, nil
}

// CreateEntity seeds a new character or member record.
func (s *ModerationService) CreateEntity(ctx context.Context, entity domain.Entity) (*domain.Entity, error) {
	if !entity.Type.IsKnown() {
		return nil, apperrors.NewValidationError("unknown entity type", map[string]any{"entityType": entity.Type})
	}
	if strings.TrimSpace(entity.ID.String()) == "" {
		return nil, apperrors.NewValidationError("entity id is required", nil)
	}
	if entity.Attributes == nil {
		entity.Attributes = map[string]any{}
	}
	if err := s.entities.Create(ctx, &entity); err != nil {
		return nil, mapStoreError("create entity", err)
	}
	return &entity, nil
}

// ListRevisions returns the applied changes of an entity, oldest first.
func (s *ModerationService) ListRevisions(ctx context.Context, entityType domain.EntityType, id domain.EntityID) ([]domain.EntityRevision, error) {
	revisions, err := s.revisions.ListByEntity(ctx, entityType, id)
	if err != nil {
		return nil, mapStoreError("list revisions", err)
	}
	return revisions, nil
}

// ApplyApproved commits an approved request to its entity and records a revision.
func (s *ModerationService) ApplyApproved(ctx context.Context, req domain.ChangeRequest) (revision *domain.EntityRevision, err error) {
	ctx, span := s.startSpan(ctx, "ApplyApproved", attribute.String("change_request_id", req.ID))
	defer func() { endSpan(span, err) }()

	if req.Status != domain.StatusApproved {
		return nil, apperrors.NewInvalidTransition("only approved requests can be applied", map[string]any{"status": req.Status}, changes.ErrInvalidTransition)
	}
	entity, err := s.entities.GetByID(ctx, req.EntityType, req.EntityID)
	if err != nil {
		return nil, mapStoreError("load entity", err)
	}
	updated, err := ApplyChange(*entity, req)
	if err != nil {
		return nil, mapStoreError("apply change request", err)
	}
	patch, err := RevisionPatch(*entity, updated)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.entities.Update(ctx, &updated); err != nil {
		return nil, mapStoreError("update entity", err)
	}

	before, _ := entity.Field(req.FieldType)
	after, _ := updated.Field(req.FieldType)
	appliedBy := ""
	if req.ApprovedBy != nil {
		appliedBy = *req.ApprovedBy
	}
	revision = &domain.EntityRevision{
		EntityType:      req.EntityType,
		EntityID:        req.EntityID,
		FieldType:       req.FieldType,
		ChangeRequestID: req.ID,
		Action:          req.Action,
		OldValue:        marshalField(before),
		NewValue:        marshalField(after),
		Patch:           patch,
		AppliedBy:       appliedBy,
		AppliedAt:       changes.Timestamp(s.now()),
	}
	if err := s.revisions.Create(ctx, revision); err != nil {
		return nil, mapStoreError("record revision", err)
	}

	s.logger.Info("change request applied",
		zap.String("change_request_id", req.ID),
		zap.String("revision_id", revision.ID),
		zap.String("entity_id", req.EntityID.String()),
		zap.String("field_type", req.FieldType))
	s.publishEvent(ctx, events.NewChangeRequestEvent(events.EventEntityFieldApplied, req, appliedBy,
		events.EntityFieldAppliedPayload{RevisionID: revision.ID, Action: req.Action}))
	return revision, nil
}

// RegisterHandlers subscribes the entity update to approvals.
func (s *ModerationService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventChangeRequestApproved, s.handleApproved)
}

func (s *ModerationService) handleApproved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ChangeRequestApprovedPayload)
	if !ok {
		return errors.New("approval event without request payload")
	}
	_, err := s.ApplyApproved(ctx, payload.Request)
	return err
}

func (s *ModerationService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event subscribers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("change_request_id", event.ChangeRequestID),
			zap.Error(err))
	}
}

func (s *ModerationService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "moderation."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func describe(req domain.ChangeRequest) ChangeRequestView {
	view := ChangeRequestView{
		Request:  req,
		OldLabel: changes.Format(req.OldValue),
		NewLabel: changes.Format(req.NewValue),
	}
	if req.HasOldValue() && req.HasNewValue() && changes.IsArrayValue(req.OldValue) && changes.IsArrayValue(req.NewValue) {
		oldValue, oldErr := changes.DecodeValue(req.OldValue)
		newValue, newErr := changes.DecodeValue(req.NewValue)
		if oldErr == nil && newErr == nil {
			diff := changes.Diff(oldValue, newValue)
			view.Diff = &diff
		}
	}
	return view
}

// isArrayField decides whether a field is reviewed as a list. An unset field
// counts as a list when pending requests add or remove elements.
func isArrayField(current any, pending []domain.ChangeRequest) bool {
	if _, ok := changes.AsArray(current); ok {
		return true
	}
	if current != nil {
		return false
	}
	for _, req := range pending {
		if req.Action == domain.ActionAdd || req.Action == domain.ActionDelete {
			return true
		}
	}
	return false
}

func marshalField(v any) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// mapStoreError translates core and store failures into API errors.
func mapStoreError(operation string, err error) error {
	var domainErr *apperrors.DomainError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resourceFor(operation), nil)
	case errors.Is(err, repository.ErrAlreadyExists):
		return apperrors.NewConflict(resourceFor(operation), nil)
	case errors.Is(err, repository.ErrInvalidTransition), errors.Is(err, changes.ErrInvalidTransition):
		return apperrors.NewInvalidTransition("change request is no longer pending", nil, err)
	case errors.Is(err, changes.ErrMalformedRequest):
		details := map[string]any{}
		var malformed *changes.MalformedRequestError
		if errors.As(err, &malformed) && malformed.Field != "" {
			details["field"] = malformed.Field
		}
		return apperrors.NewMalformedRequest(err.Error(), details, err)
	default:
		return apperrors.NewTransportError(operation, err)
	}
}

func resourceFor(operation string) string {
	switch {
	case strings.Contains(operation, "entity"):
		return "entity"
	case strings.Contains(operation, "revision"):
		return "revision"
	default:
		return "change request"
	}
}

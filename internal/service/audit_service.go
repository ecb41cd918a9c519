package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/events"
	"github.com/spec-kit/constituent-access/internal/observability"
	"github.com/spec-kit/constituent-access/internal/repository"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

// AuditService records domain events: every event is logged, and kept in
// the audit repository when one is configured.
type AuditService struct {
	dispatcher events.Dispatcher
	repo       repository.AuditRepository
	logger     *zap.Logger
}

// NewAuditService creates the service. repo may be nil.
func NewAuditService(dispatcher events.Dispatcher, repo repository.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		repo:       repo,
		logger:     observability.OrNop(logger).With(zap.String("component", "audit")),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventEntityCreated, a.handleEntityChanged)
	a.dispatcher.Subscribe(events.EventEntityUpdated, a.handleEntityChanged)
	a.dispatcher.Subscribe(events.EventEntityDeleted, a.handleEntityChanged)
	a.dispatcher.Subscribe(events.EventAccessDenied, a.handleAccessDenied)
	a.dispatcher.Subscribe(events.EventSettingsChanged, a.handleSettingsChanged)
	a.dispatcher.Subscribe(events.EventStaffAdmitted, a.handleStaffAdmitted)
}

// Recent lists the newest audit entries of p's office. Company principals
// read the platform-wide trail.
func (a *AuditService) Recent(ctx context.Context, p *domain.Principal, limit int64) ([]events.Event, error) {
	if a.repo == nil {
		return []events.Event{}, nil
	}
	if !p.Has(domain.PermSettingsEdit) {
		return nil, apperrors.NewForbidden("settings.edit permission required")
	}
	return a.repo.ListByOffice(ctx, p.OfficeID, limit)
}

func (a *AuditService) handleEntityChanged(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), a.fields(event)...)
	return a.record(ctx, event)
}

func (a *AuditService) handleAccessDenied(ctx context.Context, event events.Event) error {
	fields := a.fields(event)
	if payload, ok := event.Payload.(events.AccessDeniedPayload); ok {
		fields = append(fields,
			zap.String("operation", payload.Operation),
			zap.String("reason", payload.Reason),
			zap.String("permission", payload.Permission),
		)
	}
	a.logger.Warn(string(event.Type), fields...)
	return a.record(ctx, event)
}

func (a *AuditService) handleSettingsChanged(ctx context.Context, event events.Event) error {
	fields := a.fields(event)
	if payload, ok := event.Payload.(events.SettingsChangedPayload); ok {
		fields = append(fields, zap.String("section", payload.Section))
	}
	a.logger.Info(string(event.Type), fields...)
	return a.record(ctx, event)
}

func (a *AuditService) handleStaffAdmitted(ctx context.Context, event events.Event) error {
	fields := a.fields(event)
	if payload, ok := event.Payload.(events.StaffAdmittedPayload); ok {
		fields = append(fields,
			zap.String("role", string(payload.Role)),
			zap.String("supervisor_id", payload.SupervisorID),
			zap.Time("end", payload.End),
		)
	}
	a.logger.Info(string(event.Type), fields...)
	return a.record(ctx, event)
}

func (a *AuditService) fields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("entity", string(event.Entity)),
		zap.String("entity_id", event.EntityID),
		zap.String("office_id", event.OfficeID),
		zap.String("actor_id", event.Actor.ID),
		zap.String("actor_role", string(event.Actor.Role)),
	}
}

func (a *AuditService) record(ctx context.Context, event events.Event) error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Append(ctx, event)
}

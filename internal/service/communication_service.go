package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/constituent-access/internal/access"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/observability"
	"github.com/spec-kit/constituent-access/internal/policy"
	"github.com/spec-kit/constituent-access/internal/query"
	"github.com/spec-kit/constituent-access/internal/store"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

// CommunicationService runs the communication workflow: drafting,
// scheduling, approval, sending and inbound submissions.
type CommunicationService struct {
	comms    *store.Gateway[*domain.Communication]
	policies policy.Source
	now      func() time.Time
	logger   *zap.Logger
}

// CommunicationDependencies bundles collaborators for the communication service.
type CommunicationDependencies struct {
	Communications *store.Gateway[*domain.Communication]
	Policies       policy.Source
	Now            func() time.Time
	Logger         *zap.Logger
}

// DraftInput describes a new outbound communication.
type DraftInput struct {
	Type             domain.CommunicationType
	Channel          domain.Channel
	Subject          string
	Content          string
	RecipientID      string
	RecipientGroupID string
	Visibility       domain.Visibility
	Metadata         domain.CommunicationMetadata
}

// CommunicationUpdate carries the editable fields; nil fields are left unchanged.
type CommunicationUpdate struct {
	Subject    *string
	Content    *string
	Channel    *domain.Channel
	Visibility *domain.Visibility
	Metadata   *domain.CommunicationMetadata
}

// InboundInput is what a constituent submits to their representative.
type InboundInput struct {
	Channel domain.Channel
	Subject string
	Content string
}

// CommunicationFilter narrows List; empty fields match everything.
type CommunicationFilter struct {
	Type      domain.CommunicationType
	Direction domain.Direction
	Channel   domain.Channel
	Status    domain.CommunicationStatus
	District  string
}

// NewCommunicationService constructs the service.
func NewCommunicationService(deps CommunicationDependencies) *CommunicationService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &CommunicationService{
		comms:    deps.Communications,
		policies: deps.Policies,
		now:      deps.Now,
		logger:   observability.OrNop(deps.Logger).With(zap.String("component", "communications")),
	}
}

// CreateDraft stores a new outbound draft authored by p.
func (s *CommunicationService) CreateDraft(ctx context.Context, p *domain.Principal, in DraftInput) (*domain.Communication, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperrors.NewValidationError("content is required", nil)
	}
	if in.Type == "" {
		in.Type = domain.CommunicationBroadcast
	}
	if in.Channel == "" {
		in.Channel = domain.ChannelEmail
	}
	if in.Type == domain.CommunicationDirect && in.RecipientID == "" {
		return nil, apperrors.NewValidationError("direct communication needs a recipient", nil)
	}
	if in.Type == domain.CommunicationGroup && in.RecipientGroupID == "" {
		return nil, apperrors.NewValidationError("group communication needs a recipient group", nil)
	}

	comm := &domain.Communication{
		EntityBase:       domain.EntityBase{Visibility: in.Visibility},
		SenderID:         p.ID,
		SenderRole:       p.Role,
		RecipientID:      in.RecipientID,
		RecipientGroupID: in.RecipientGroupID,
		Type:             in.Type,
		Direction:        domain.DirectionOutbound,
		Channel:          in.Channel,
		Subject:          strings.TrimSpace(in.Subject),
		Content:          in.Content,
		Status:           domain.CommunicationDraft,
		Metadata:         in.Metadata,
	}
	return s.comms.Create(ctx, p, comm)
}

// SubmitInbound records a message from a constituent to their own representative.
func (s *CommunicationService) SubmitInbound(ctx context.Context, p *domain.Principal, in InboundInput) (*domain.Communication, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperrors.NewValidationError("content is required", nil)
	}
	if p.OfficeID == "" || p.RepresentativeID == "" {
		return nil, apperrors.NewValidationError("constituent is not linked to a representative office", nil)
	}
	if in.Channel == "" {
		in.Channel = domain.ChannelEmail
	}
	now := s.now().UTC()
	comm := &domain.Communication{
		EntityBase: domain.EntityBase{
			OfficeID:         p.OfficeID,
			RepresentativeID: p.RepresentativeID,
			Visibility:       domain.VisibilityPrivate,
		},
		SenderID:    p.ID,
		SenderRole:  p.Role,
		RecipientID: p.RepresentativeID,
		Type:        domain.CommunicationDirect,
		Direction:   domain.DirectionInbound,
		Channel:     in.Channel,
		Subject:     strings.TrimSpace(in.Subject),
		Content:     in.Content,
		Status:      domain.CommunicationDelivered,
		SentAt:      &now,
	}
	if p.District != "" {
		comm.Metadata.Location = &domain.Location{District: p.District}
	}
	return s.comms.Create(ctx, p, comm)
}

func (s *CommunicationService) Get(ctx context.Context, p *domain.Principal, id string) (*domain.Communication, error) {
	return s.comms.Get(ctx, p, id)
}

// Update edits a draft or scheduled communication.
func (s *CommunicationService) Update(ctx context.Context, p *domain.Principal, id string, in CommunicationUpdate) (*domain.Communication, error) {
	return s.comms.Update(ctx, p, id, func(c *domain.Communication) error {
		if err := requireEditable(c); err != nil {
			return err
		}
		if in.Subject != nil {
			c.Subject = strings.TrimSpace(*in.Subject)
		}
		if in.Content != nil {
			if strings.TrimSpace(*in.Content) == "" {
				return apperrors.NewValidationError("content is required", nil)
			}
			c.Content = *in.Content
		}
		if in.Channel != nil {
			c.Channel = *in.Channel
		}
		if in.Visibility != nil {
			c.Visibility = *in.Visibility
		}
		if in.Metadata != nil {
			c.Metadata = *in.Metadata
		}
		// Edits invalidate a previous approval.
		c.ApprovedBy = ""
		c.ApprovedAt = nil
		return nil
	})
}

func (s *CommunicationService) Delete(ctx context.Context, p *domain.Principal, id string) error {
	return s.comms.Delete(ctx, p, id)
}

// Schedule moves a draft to scheduled for delivery at at.
func (s *CommunicationService) Schedule(ctx context.Context, p *domain.Principal, id string, at time.Time) (*domain.Communication, error) {
	if !at.After(s.now()) {
		return nil, apperrors.NewValidationError("scheduled time must be in the future", nil)
	}
	return s.comms.Update(ctx, p, id, func(c *domain.Communication) error {
		if err := requireEditable(c); err != nil {
			return err
		}
		at := at.UTC()
		c.ScheduledFor = &at
		c.Status = domain.CommunicationScheduled
		return nil
	})
}

// Cancel withdraws a scheduled communication.
func (s *CommunicationService) Cancel(ctx context.Context, p *domain.Principal, id string) (*domain.Communication, error) {
	return s.comms.Update(ctx, p, id, func(c *domain.Communication) error {
		if c.Status != domain.CommunicationScheduled {
			return apperrors.NewConflict("only scheduled communications can be cancelled", map[string]any{"status": c.Status})
		}
		c.Status = domain.CommunicationCancelled
		return nil
	})
}

// Approve records p's approval. When the office defines an approval chain,
// only roles on it (and the representative) may approve.
func (s *CommunicationService) Approve(ctx context.Context, p *domain.Principal, id string) (*domain.Communication, error) {
	if p.Role != domain.RoleRepresentative && p.Family() != domain.FamilyConstituent {
		pol, err := s.policies.ForOffice(ctx, p.OfficeID)
		if err != nil && !errors.Is(err, policy.ErrOfficeNotProvisioned) {
			return nil, err
		}
		if err == nil {
			chain := pol.Settings().WorkflowSettings.ApprovalChain
			if len(chain) > 0 && !slices.Contains(chain, p.Role) {
				return nil, apperrors.NewForbidden("role is not on the approval chain")
			}
		}
	}
	return s.comms.Mutate(ctx, p, access.OpApprove, id, func(c *domain.Communication) error {
		if err := requireEditable(c); err != nil {
			return err
		}
		now := s.now().UTC()
		c.ApprovedBy = p.ID
		c.ApprovedAt = &now
		return nil
	})
}

// Send marks a communication as sent. Delivery over the channel happens
// outside this service. Communications that need approval under office
// policy are rejected until approved.
func (s *CommunicationService) Send(ctx context.Context, p *domain.Principal, id string) (*domain.Communication, error) {
	pol, err := s.policies.ForOffice(ctx, p.OfficeID)
	if err != nil && !errors.Is(err, policy.ErrOfficeNotProvisioned) {
		return nil, err
	}
	sent, err := s.comms.Mutate(ctx, p, access.OpSend, id, func(c *domain.Communication) error {
		if err := requireEditable(c); err != nil {
			return err
		}
		if needsApproval(pol, c) && c.ApprovedBy == "" {
			return apperrors.NewConflict("communication requires approval before sending", map[string]any{"id": c.ID})
		}
		now := s.now().UTC()
		c.Status = domain.CommunicationSent
		c.SentAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("communication sent",
		zap.String("communication_id", sent.ID),
		zap.String("channel", string(sent.Channel)),
		zap.String("principal_id", p.ID),
	)
	return sent, nil
}

// Drafts lists drafts in p's scope, newest first.
func (s *CommunicationService) Drafts(ctx context.Context, p *domain.Principal, opts query.Options) ([]*domain.Communication, error) {
	return s.comms.Query(ctx, p, query.Eq(domain.FieldStatus, string(domain.CommunicationDraft)), opts)
}

// Scheduled lists scheduled communications in p's scope, soonest first.
func (s *CommunicationService) Scheduled(ctx context.Context, p *domain.Principal, opts query.Options) ([]*domain.Communication, error) {
	if opts.OrderBy == "" {
		opts.OrderBy = domain.FieldScheduledFor
		opts.Desc = false
	}
	return s.comms.Query(ctx, p, query.Eq(domain.FieldStatus, string(domain.CommunicationScheduled)), opts)
}

// List returns communications in p's scope matching f.
func (s *CommunicationService) List(ctx context.Context, p *domain.Principal, f CommunicationFilter, opts query.Options) ([]*domain.Communication, error) {
	return s.comms.Query(ctx, p, f.predicate(), opts)
}

func (f CommunicationFilter) predicate() query.Predicate {
	pred := query.All()
	for _, c := range [][2]string{
		{domain.FieldType, string(f.Type)},
		{domain.FieldDirection, string(f.Direction)},
		{domain.FieldChannel, string(f.Channel)},
		{domain.FieldStatus, string(f.Status)},
		{domain.FieldDistrict, f.District},
	} {
		if c[1] != "" {
			pred = pred.And(query.Eq(c[0], c[1]))
		}
	}
	return pred
}

func requireEditable(c *domain.Communication) error {
	switch c.Status {
	case domain.CommunicationDraft, domain.CommunicationScheduled:
		return nil
	default:
		return apperrors.NewConflict("communication can no longer be changed", map[string]any{"status": c.Status})
	}
}

// needsApproval applies the office workflow: an office-wide approval
// requirement, or review of anything authored by temporary staff.
func needsApproval(pol policy.Policy, c *domain.Communication) bool {
	settings := pol.Settings()
	if settings == nil {
		return false
	}
	if settings.WorkflowSettings.RequireApproval {
		return true
	}
	return c.SenderRole.Family() == domain.FamilyTemporary && settings.CommunicationDefaults.TempStaffSettings.RequireReview
}

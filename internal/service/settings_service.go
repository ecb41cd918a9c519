package service

import (
	"context"
	"strings"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/policy"
	"github.com/spec-kit/constituent-access/internal/query"
	"github.com/spec-kit/constituent-access/internal/store"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

// SettingsService provisions and edits office settings documents.
type SettingsService struct {
	settings *store.Gateway[*domain.OfficeSettings]
	policy   *policy.Service
}

// ProvisionInput names a new office. Office principals provision their own
// office and the ids are taken from the principal.
type ProvisionInput struct {
	OfficeID         string
	RepresentativeID string
	Name             string
	District         string
}

// SettingsUpdate replaces whole sections; nil sections are left unchanged.
type SettingsUpdate struct {
	Name                  *string
	District              *string
	WorkflowSettings      *domain.WorkflowSettings
	CommunicationDefaults *domain.CommunicationDefaults
}

// NewSettingsService constructs the service.
func NewSettingsService(settings *store.Gateway[*domain.OfficeSettings], policyService *policy.Service) *SettingsService {
	return &SettingsService{settings: settings, policy: policyService}
}

// Provision creates the settings document of an office with platform defaults.
func (s *SettingsService) Provision(ctx context.Context, p *domain.Principal, in ProvisionInput) (*domain.OfficeSettings, error) {
	if p.Family() == domain.FamilyPermanent || p.Family() == domain.FamilyTemporary {
		in.OfficeID = p.OfficeID
		in.RepresentativeID = p.ScopeID()
	}
	if in.OfficeID == "" || in.RepresentativeID == "" {
		return nil, apperrors.NewValidationError("office id and representative id are required", nil)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	settings := domain.NewOfficeSettings(in.OfficeID, in.RepresentativeID, strings.TrimSpace(in.Name), in.District)
	settings.UpdatedBy = p.ID
	return s.settings.Create(ctx, p, settings)
}

func (s *SettingsService) Get(ctx context.Context, p *domain.Principal, officeID string) (*domain.OfficeSettings, error) {
	return s.settings.Get(ctx, p, officeID)
}

// List returns the settings documents p can see: one for office principals,
// every office for company principals.
func (s *SettingsService) List(ctx context.Context, p *domain.Principal, opts query.Options) ([]*domain.OfficeSettings, error) {
	return s.settings.Query(ctx, p, query.All(), opts)
}

// Update edits the general sections. It requires settings.edit.
func (s *SettingsService) Update(ctx context.Context, p *domain.Principal, officeID string, in SettingsUpdate) (*domain.OfficeSettings, error) {
	if in.WorkflowSettings != nil {
		if err := validateRoles(in.WorkflowSettings.ApprovalChain); err != nil {
			return nil, err
		}
	}
	return s.policy.Update(ctx, p, officeID, func(settings *domain.OfficeSettings) error {
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return apperrors.NewValidationError("name is required", nil)
			}
			settings.Name = strings.TrimSpace(*in.Name)
		}
		if in.District != nil {
			settings.District = *in.District
		}
		if in.WorkflowSettings != nil {
			settings.WorkflowSettings = *in.WorkflowSettings
		}
		if in.CommunicationDefaults != nil {
			settings.CommunicationDefaults = *in.CommunicationDefaults
		}
		return nil
	})
}

// UpdateStaffing replaces the staffing section. It requires staff.manage_roles.
func (s *SettingsService) UpdateStaffing(ctx context.Context, p *domain.Principal, officeID string, staffing domain.StaffManagement) (*domain.OfficeSettings, error) {
	if err := validateStaffing(staffing); err != nil {
		return nil, err
	}
	return s.policy.UpdateStaffing(ctx, p, officeID, func(sm *domain.StaffManagement) error {
		*sm = staffing
		return nil
	})
}

func validateStaffing(sm domain.StaffManagement) error {
	if sm.TemporaryStaff.MaxDurationDays < 0 {
		return apperrors.NewValidationError("maxDuration cannot be negative", nil)
	}
	if err := validateRoles(sm.TemporaryStaff.Approvers); err != nil {
		return err
	}
	if sm.CampaignMode.StartDate != nil && sm.CampaignMode.EndDate != nil && sm.CampaignMode.EndDate.Before(*sm.CampaignMode.StartDate) {
		return apperrors.NewValidationError("campaign end date precedes start date", nil)
	}
	for _, role := range sm.CampaignMode.SpecialRoles {
		if !role.IsCampaign() {
			return apperrors.NewValidationError("special roles must be campaign roles", map[string]any{"role": role})
		}
	}
	for role := range sm.CampaignMode.DefaultPermissions {
		if role.Family() != domain.FamilyTemporary {
			return apperrors.NewValidationError("campaign defaults only apply to temporary roles", map[string]any{"role": role})
		}
	}
	for role := range sm.PermanentStaff.Permissions {
		if role.Family() != domain.FamilyPermanent {
			return apperrors.NewValidationError("permanent defaults only apply to permanent roles", map[string]any{"role": role})
		}
	}
	return validateRoles(sm.PermanentStaff.Roles)
}

func validateRoles(roles []domain.Role) error {
	for _, role := range roles {
		if !role.Valid() {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": role})
		}
	}
	return nil
}

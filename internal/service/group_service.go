package service

import (
	"context"
	"slices"
	"strings"

	"github.com/spec-kit/constituent-access/internal/access"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/query"
	"github.com/spec-kit/constituent-access/internal/store"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

// GroupService manages constituent groups and their membership.
type GroupService struct {
	groups *store.Gateway[*domain.ConstituentGroup]
}

// GroupInput describes the editable fields of a group.
type GroupInput struct {
	Name        string
	Description string
	Type        domain.GroupType
	Visibility  domain.Visibility
	Settings    domain.GroupSettings
	Metadata    domain.GroupMetadata
	Members     []string
	Moderators  []string
}

// NewGroupService constructs the service.
func NewGroupService(groups *store.Gateway[*domain.ConstituentGroup]) *GroupService {
	return &GroupService{groups: groups}
}

func (s *GroupService) Create(ctx context.Context, p *domain.Principal, in GroupInput) (*domain.ConstituentGroup, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if in.Type == "" {
		in.Type = domain.GroupCustom
	}
	group := &domain.ConstituentGroup{
		EntityBase:  domain.EntityBase{Visibility: in.Visibility},
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Type:        in.Type,
		Members:     dedupe(in.Members),
		Moderators:  dedupe(in.Moderators),
		Settings:    in.Settings,
		Metadata:    in.Metadata,
	}
	return s.groups.Create(ctx, p, group)
}

func (s *GroupService) Get(ctx context.Context, p *domain.Principal, id string) (*domain.ConstituentGroup, error) {
	return s.groups.Get(ctx, p, id)
}

// Update replaces the descriptive fields of a group. Membership is left
// to AddMember and RemoveMember.
func (s *GroupService) Update(ctx context.Context, p *domain.Principal, id string, in GroupInput) (*domain.ConstituentGroup, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	return s.groups.Update(ctx, p, id, func(g *domain.ConstituentGroup) error {
		g.Name = strings.TrimSpace(in.Name)
		g.Description = in.Description
		if in.Type != "" {
			g.Type = in.Type
		}
		if in.Visibility != "" {
			g.Visibility = in.Visibility
		}
		g.Settings = in.Settings
		g.Metadata = in.Metadata
		if in.Moderators != nil {
			g.Moderators = dedupe(in.Moderators)
		}
		return nil
	})
}

func (s *GroupService) Delete(ctx context.Context, p *domain.Principal, id string) error {
	return s.groups.Delete(ctx, p, id)
}

// AddMember adds uid to the group. Adding an existing member is a no-op.
func (s *GroupService) AddMember(ctx context.Context, p *domain.Principal, id, uid string) (*domain.ConstituentGroup, error) {
	if uid == "" {
		return nil, apperrors.NewValidationError("member id is required", nil)
	}
	return s.groups.Update(ctx, p, id, func(g *domain.ConstituentGroup) error {
		if !g.HasMember(uid) {
			g.Members = append(g.Members, uid)
		}
		return nil
	})
}

// RemoveMember drops uid from the group and from its moderators.
func (s *GroupService) RemoveMember(ctx context.Context, p *domain.Principal, id, uid string) (*domain.ConstituentGroup, error) {
	return s.groups.Update(ctx, p, id, func(g *domain.ConstituentGroup) error {
		if !g.HasMember(uid) {
			return apperrors.NewNotFound("member", map[string]any{"group_id": id, "member_id": uid})
		}
		g.Members = slices.DeleteFunc(g.Members, func(m string) bool { return m == uid })
		g.Moderators = slices.DeleteFunc(g.Moderators, func(m string) bool { return m == uid })
		return nil
	})
}

// List returns groups in p's scope, optionally narrowed to one group type.
func (s *GroupService) List(ctx context.Context, p *domain.Principal, groupType domain.GroupType, opts query.Options) ([]*domain.ConstituentGroup, error) {
	filter := query.All()
	if groupType != "" {
		filter = query.Eq(domain.FieldType, string(groupType))
	}
	return s.groups.Query(ctx, p, filter, opts)
}

func (s *GroupService) ByDistrict(ctx context.Context, p *domain.Principal, district string, opts query.Options) ([]*domain.ConstituentGroup, error) {
	if district == "" {
		return nil, apperrors.NewValidationError("district is required", nil)
	}
	return s.groups.Query(ctx, p, query.Eq(domain.FieldDistrict, district), opts)
}

// Export returns groups for bulk export. It requires constituents.export.
func (s *GroupService) Export(ctx context.Context, p *domain.Principal, opts query.Options) ([]*domain.ConstituentGroup, error) {
	return s.groups.QueryAs(ctx, p, access.OpExport, query.All(), opts)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

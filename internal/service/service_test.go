package service

import (
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/constituent-access/internal/policy"
	"github.com/spec-kit/constituent-access/internal/repository"
	"github.com/spec-kit/constituent-access/internal/testfixtures/teststack"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

type harness struct {
	stack     *teststack.Stack
	policy    *policy.Service
	comms     *CommunicationService
	groups    *GroupService
	analytics *AnalyticsService
	settings  *SettingsService
	staff     *StaffService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	stack := teststack.New(t)
	logger := zaptest.NewLogger(t)
	source := policy.NewCachedSource(repository.NewSettingsRepository(stack.Mem), nil, logger)
	policyService := policy.NewService(policy.ServiceDeps{
		Settings:    stack.Settings,
		Users:       stack.Users,
		Invalidator: source,
		Dispatcher:  stack.Dispatcher,
		Now:         stack.Clock.NowFunc(),
		Logger:      logger,
	})
	return &harness{
		stack:  stack,
		policy: policyService,
		comms: NewCommunicationService(CommunicationDependencies{
			Communications: stack.Communications,
			Policies:       source,
			Now:            stack.Clock.NowFunc(),
			Logger:         logger,
		}),
		groups:    NewGroupService(stack.Groups),
		analytics: NewAnalyticsService(stack.Analytics),
		settings:  NewSettingsService(stack.Settings, policyService),
		staff: NewStaffService(StaffDependencies{
			Users:         stack.Users,
			Policies:      source,
			PolicyService: policyService,
			Dispatcher:    stack.Dispatcher,
			Now:           stack.Clock.NowFunc(),
			Logger:        logger,
		}),
	}
}

func codeOf(err error) string {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

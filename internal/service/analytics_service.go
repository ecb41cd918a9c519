package service

import (
	"context"

	"github.com/spec-kit/constituent-access/internal/access"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/query"
	"github.com/spec-kit/constituent-access/internal/store"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

// AnalyticsService records and reads aggregate reports.
type AnalyticsService struct {
	analytics *store.Gateway[*domain.Analytics]
}

// AnalyticsInput is a report to record.
type AnalyticsInput struct {
	Type     domain.AnalyticsType
	Period   domain.AnalyticsPeriod
	Data     map[string]float64
	Metadata domain.AnalyticsMetadata
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(analytics *store.Gateway[*domain.Analytics]) *AnalyticsService {
	return &AnalyticsService{analytics: analytics}
}

// Record stores a report. Office principals record for their own office;
// company principals record platform-wide reports.
func (s *AnalyticsService) Record(ctx context.Context, p *domain.Principal, in AnalyticsInput) (*domain.Analytics, error) {
	switch in.Type {
	case domain.AnalyticsCommunication, domain.AnalyticsEngagement, domain.AnalyticsPerformance:
	default:
		return nil, apperrors.NewValidationError("unknown analytics type", map[string]any{"type": in.Type})
	}
	switch in.Period {
	case domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly, domain.PeriodYearly:
	default:
		return nil, apperrors.NewValidationError("unknown analytics period", map[string]any{"period": in.Period})
	}
	if in.Metadata.GeneratedBy == "" {
		in.Metadata.GeneratedBy = p.ID
	}
	report := &domain.Analytics{
		Type:     in.Type,
		Period:   in.Period,
		Data:     in.Data,
		Metadata: in.Metadata,
	}
	if report.Data == nil {
		report.Data = map[string]float64{}
	}
	return s.analytics.Create(ctx, p, report)
}

func (s *AnalyticsService) Get(ctx context.Context, p *domain.Principal, id string) (*domain.Analytics, error) {
	return s.analytics.Get(ctx, p, id)
}

// ByPeriod lists reports of one period in p's scope, newest first.
func (s *AnalyticsService) ByPeriod(ctx context.Context, p *domain.Principal, period domain.AnalyticsPeriod, opts query.Options) ([]*domain.Analytics, error) {
	filter := query.All()
	if period != "" {
		filter = query.Eq(domain.FieldPeriod, string(period))
	}
	return s.analytics.Query(ctx, p, filter, opts)
}

// Export returns reports for bulk export. It requires analytics.export.
func (s *AnalyticsService) Export(ctx context.Context, p *domain.Principal, opts query.Options) ([]*domain.Analytics, error) {
	return s.analytics.QueryAs(ctx, p, access.OpExport, query.All(), opts)
}

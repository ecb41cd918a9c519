package domain

// AnalyticsType classifies a report.
type AnalyticsType string

const (
	AnalyticsCommunication AnalyticsType = "communication"
	AnalyticsEngagement    AnalyticsType = "engagement"
	AnalyticsPerformance   AnalyticsType = "performance"
)

// AnalyticsPeriod is the aggregation window of a report.
type AnalyticsPeriod string

const (
	PeriodDaily   AnalyticsPeriod = "daily"
	PeriodWeekly  AnalyticsPeriod = "weekly"
	PeriodMonthly AnalyticsPeriod = "monthly"
	PeriodYearly  AnalyticsPeriod = "yearly"
)

// AnalyticsMetadata describes how a report was produced.
type AnalyticsMetadata struct {
	Filters     map[string]string `json:"filters,omitempty"`
	Segments    []string          `json:"segments,omitempty"`
	Source      string            `json:"source,omitempty"`
	GeneratedBy string            `json:"generatedBy,omitempty"`
}

// Analytics is an aggregated report. Office reports carry an office id;
// platform-wide reports leave it empty and are only reachable by company roles.
type Analytics struct {
	EntityBase
	Type     AnalyticsType      `json:"type"`
	Period   AnalyticsPeriod    `json:"period"`
	Data     map[string]float64 `json:"data"`
	Metadata AnalyticsMetadata  `json:"metadata"`
}

// Kind implements Entity.
func (a *Analytics) Kind() EntityType { return EntityAnalytics }

// Attrs implements Entity.
func (a *Analytics) Attrs() Attrs {
	attrs := a.EntityBase.attrs("")
	attrs[FieldType] = string(a.Type)
	attrs[FieldPeriod] = string(a.Period)
	return attrs
}

// PlatformWide reports whether the record belongs to no office.
func (a *Analytics) PlatformWide() bool {
	return a.OfficeID == ""
}

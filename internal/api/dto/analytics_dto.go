package dto

import "github.com/spec-kit/constituent-access/internal/domain"

// RecordAnalyticsRequest payload.
type RecordAnalyticsRequest struct {
	Type     domain.AnalyticsType     `json:"type"`
	Period   domain.AnalyticsPeriod   `json:"period"`
	Data     map[string]float64       `json:"data"`
	Metadata domain.AnalyticsMetadata `json:"metadata"`
}

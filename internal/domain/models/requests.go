package models

// Requests for the risk API endpoints. Defined in domain for consistency and reuse.

type SnapshotRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type AlertRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type BandsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type UpdateLogsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type RecomputeRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

package dto

import (
	"github.com/spec-kit/ticket-priority/internal/domain"
	"github.com/spec-kit/ticket-priority/internal/repository"
	"github.com/spec-kit/ticket-priority/internal/service"
)

// ReportPayload shapes a rendered report: rows for a datatable, the ticket
// count for an indicator and the summed points for a score.
func ReportPayload(res service.ReportResult) any {
	switch res.View {
	case service.ViewIndicator:
		return res.Count
	case service.ViewScore:
		return res.Score
	default:
		if res.Rows == nil {
			return []service.DatatableRecord{}
		}
		return res.Rows
	}
}

// ClassificationUpdateRequest payload of PATCH /api/request-classification.
type ClassificationUpdateRequest struct {
	RequestID int64  `json:"AP_SD_REQUEST_ID"`
	RFCNumber string `json:"AP_SD_RFC_NUMBER"`
	Type      string `json:"Type"`
}

// Key returns the ticket key of the request.
func (r ClassificationUpdateRequest) Key() domain.TicketKey {
	return domain.TicketKey{RequestID: r.RequestID, RFCNumber: r.RFCNumber}
}

// ClassificationResponse is the stored classification of one request.
type ClassificationResponse struct {
	RequestID        int64  `json:"AP_SD_REQUEST_ID"`
	InterventionType int    `json:"AP_INTERVENTION_TYPE"`
	Label            string `json:"AP_TYPE_FR"`
}

// NewClassificationResponse maps a classification.
func NewClassificationResponse(requestID int64, c domain.Classification) ClassificationResponse {
	return ClassificationResponse{
		RequestID:        requestID,
		InterventionType: int(c.InterventionType),
		Label:            c.Category,
	}
}

// InterventionTypeResponse is one selectable intervention type.
type InterventionTypeResponse struct {
	ID    int    `json:"id"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

// NewInterventionTypeResponses maps repository rows.
func NewInterventionTypeResponses(types []repository.InterventionTypeInfo) []InterventionTypeResponse {
	out := make([]InterventionTypeResponse, len(types))
	for i, t := range types {
		out[i] = InterventionTypeResponse{ID: int(t.ID), Code: t.Code, Label: t.LabelFR}
	}
	return out
}

// RefreshRequest names the datasets to drop from the cache. Empty means all.
type RefreshRequest struct {
	Datasets []string `json:"datasets"`
}

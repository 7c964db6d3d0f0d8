package pipeline

import (
	"sort"
	"strings"

	"github.com/spec-kit/ticket-priority/internal/domain"
)

// PivotEmployeeMovements groups form answers by request and maps the known
// question ids onto EmployeeMovement fields. The French display value wins
// over the raw result. Output is ordered by request id.
func PivotEmployeeMovements(rows []domain.RawQuestionResult) []domain.EmployeeMovement {
	byRequest := make(map[int64]*domain.EmployeeMovement)
	for _, r := range rows {
		m, ok := byRequest[r.RequestID]
		if !ok {
			m = &domain.EmployeeMovement{
				RequestID: r.RequestID,
				RFCNumber: strings.TrimSpace(r.RFCNumber),
				CatalogID: r.CatalogID,
			}
			byRequest[r.RequestID] = m
		}

		value := text(r.ResultStringFR)
		if value == "" {
			value = text(r.Result)
		}

		switch r.QuestionID {
		case domain.QuestionLastName:
			m.LastName = value
		case domain.QuestionFirstName:
			m.FirstName = value
		case domain.QuestionLocation:
			m.Location = value
		case domain.QuestionContract:
			m.Contract = value
		case domain.QuestionArrivalDate:
			m.ArrivalDate = value
		case domain.QuestionPCPresent:
			m.PCPresent = value
		case domain.QuestionTelephone:
			m.Telephone = value
		}
	}

	out := make([]domain.EmployeeMovement, 0, len(byRequest))
	for _, m := range byRequest {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestID < out[j].RequestID })
	return out
}

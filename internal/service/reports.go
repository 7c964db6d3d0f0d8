package service

import (
	"sort"

	"github.com/spec-kit/ticket-priority/internal/domain"
	"github.com/spec-kit/ticket-priority/internal/selector"
	apperrors "github.com/spec-kit/ticket-priority/pkg/util/errorutil"
)

// ReportName identifies a catalogue entry.
type ReportName string

const (
	ReportTicketFlow            ReportName = "ticket_flow"
	ReportSuspendedMail         ReportName = "suspended_mail"
	ReportUnderObservation      ReportName = "under_observation"
	ReportSoftwareInstallation  ReportName = "software_installation"
	ReportNewArrivals           ReportName = "new_arrivals"
	ReportSuspendedGtX          ReportName = "suspended_gt_x"
	ReportContactedXTimes       ReportName = "contacted_x_times"
	ReportNotSuspendedIncidents ReportName = "not_suspended_incidents"
	ReportIndustrial            ReportName = "industrial"
	ReportSecurity              ReportName = "security"
	ReportVIP                   ReportName = "vip"
	ReportSensitivePersonnel    ReportName = "sensitive_personnel"
	ReportUrgent                ReportName = "urgent"
	ReportDigipass              ReportName = "digipass"
	ReportSkype                 ReportName = "skype"
	ReportOutlook               ReportName = "outlook"
	ReportTelephone             ReportName = "telephone"
)

// View selects how a report is rendered.
type View string

const (
	ViewDatatable View = "datatable"
	ViewIndicator View = "indicator"
	ViewScore     View = "score"
)

// MinContacts is the contact count of the contacted_x_times report.
const MinContacts = 3

// ReportQuery names a report and its filters. InterType is only read by
// the reports that split by channel.
type ReportQuery struct {
	Name       ReportName
	View       View
	TechFilter string
	InterType  selector.Flow
}

// ReportResult carries the rendered view. Count and Score are always set;
// Rows only for the datatable view.
type ReportResult struct {
	Name  ReportName        `json:"name"`
	View  View              `json:"view"`
	Count int               `json:"indicator"`
	Score int               `json:"score"`
	Rows  []DatatableRecord `json:"data,omitempty"`
}

type reportDef struct {
	selectRows func(s *ReportService, snap *Snapshot, q ReportQuery) ([]domain.ScoredTicket, error)
}

func rowsOf(fn func([]domain.ScoredTicket) []domain.ScoredTicket) reportDef {
	return reportDef{selectRows: func(_ *ReportService, snap *Snapshot, _ ReportQuery) ([]domain.ScoredTicket, error) {
		return fn(snap.Tickets), nil
	}}
}

var catalogue = map[ReportName]reportDef{
	ReportTicketFlow: {selectRows: func(_ *ReportService, snap *Snapshot, q ReportQuery) ([]domain.ScoredTicket, error) {
		return selector.TicketFlow(snap.Tickets, q.InterType, false), nil
	}},
	ReportSuspendedMail: {selectRows: func(_ *ReportService, snap *Snapshot, _ ReportQuery) ([]domain.ScoredTicket, error) {
		return selector.SuspendedUnansweredByMail(snap.Tickets, snap.Actions, snap.Now), nil
	}},
	ReportUnderObservation: {selectRows: func(_ *ReportService, snap *Snapshot, _ ReportQuery) ([]domain.ScoredTicket, error) {
		return selector.UnderObservation(snap.Tickets, snap.Actions), nil
	}},
	ReportSuspendedGtX: {selectRows: func(_ *ReportService, snap *Snapshot, q ReportQuery) ([]domain.ScoredTicket, error) {
		channel := selector.ChannelProxy
		switch q.InterType {
		case selector.FlowHotline:
			channel = selector.ChannelHotline
		case selector.FlowAll, selector.FlowProxy:
		default:
			return nil, apperrors.NewValidationError("suspended_gt_x takes hotline or proxy", map[string]any{"inter_type": string(q.InterType)})
		}
		return selector.SuspendedBeyond(snap.Tickets, snap.Actions, channel, snap.Now), nil
	}},
	ReportContactedXTimes: {selectRows: func(_ *ReportService, snap *Snapshot, _ ReportQuery) ([]domain.ScoredTicket, error) {
		return selector.ContactedTimes(snap.Tickets, snap.Actions, MinContacts), nil
	}},
	ReportVIP: {selectRows: func(s *ReportService, snap *Snapshot, _ ReportQuery) ([]domain.ScoredTicket, error) {
		return selector.VIP(snap.Tickets, s.vip), nil
	}},
	ReportSensitivePersonnel: {selectRows: func(s *ReportService, snap *Snapshot, _ ReportQuery) ([]domain.ScoredTicket, error) {
		return selector.SensitivePersonnel(snap.Tickets, s.sensitive), nil
	}},
	ReportSoftwareInstallation:  rowsOf(selector.SoftwareInstall[domain.ScoredTicket]),
	ReportNewArrivals:           rowsOf(selector.NewArrivals[domain.ScoredTicket]),
	ReportNotSuspendedIncidents: rowsOf(selector.NotSuspended[domain.ScoredTicket]),
	ReportIndustrial:            rowsOf(selector.Industrial[domain.ScoredTicket]),
	ReportSecurity:              rowsOf(selector.Security[domain.ScoredTicket]),
	ReportUrgent:                rowsOf(selector.Urgent[domain.ScoredTicket]),
	ReportDigipass:              rowsOf(selector.Digipass[domain.ScoredTicket]),
	ReportSkype:                 rowsOf(selector.Skype[domain.ScoredTicket]),
	ReportOutlook:               rowsOf(selector.Outlook[domain.ScoredTicket]),
	ReportTelephone:             rowsOf(selector.Telephone[domain.ScoredTicket]),
}

// Reports lists the catalogue in name order.
func Reports() []ReportName {
	names := make([]ReportName, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (q ReportQuery) validate() (reportDef, error) {
	def, ok := catalogue[q.Name]
	if !ok {
		return reportDef{}, apperrors.NewNotFound("report", map[string]any{"report": string(q.Name)})
	}
	switch q.View {
	case ViewDatatable, ViewIndicator, ViewScore:
	default:
		return reportDef{}, apperrors.NewValidationError("view must be datatable, indicator or score", map[string]any{"view": string(q.View)})
	}
	if !q.InterType.Valid() {
		return reportDef{}, invalidFlow(q.InterType)
	}
	return def, nil
}

func renderReport(q ReportQuery, rows []domain.ScoredTicket) ReportResult {
	res := ReportResult{
		Name:  q.Name,
		View:  q.View,
		Count: len(rows),
		Score: TotalScore(rows),
	}
	if q.View == ViewDatatable {
		res.Rows = NewDatatable(rows)
	}
	return res
}

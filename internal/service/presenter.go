package service

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spec-kit/ticket-priority/internal/domain"
	"github.com/spec-kit/ticket-priority/internal/pipeline"
)

const (
	// TableRowLimit caps the expiration and suspended-mail tables.
	TableRowLimit = 25

	slaLayout      = "02/01/06 15:04"
	calendarLayout = "2006-01-02"
	arrivalLayout  = "02/01/2006"
)

var locationNames = map[string]string{
	"CNR DIR REGION BELLEY":       "DHR Belley",
	"CNR AMGT BELLEY-BREG CORD":   "DHR Bregnier-Cordon",
	"CNR AMGT GENISSIAT":          "DHR Genissiat",
	"CNR AMGT SAULT BRENAZ-LOY":   "DHR Sault Brenaz",
	"CNR AMGT SEYSSEL-CHAUTAGN":   "DHR Seyssel",
	"CNR SIEGE SOCIAL":            "DM Siege",
	"CNR DELEGATION DE PARIS":     "DM Paris",
	"CNR LABORATOIRE GERLAND":     "DM CACOH",
	"CNR PORT EDOUARD HERRIOT":    "DM PLEH",
	"CNR USINE PIERRE BENITE":     "DM Pierre Benite",
	"CNR DIR REGION VIENNE":       "DRS Vienne",
	"CNR JEAN BART":               "DRS Jean Bart",
	"Bureau MAINTENANCE":          "DRS Jean Bart",
	"CNR USINE DE GERVANS":        "DRS Gervans",
	"CNR USINE DE SABLONS":        "DRS Sablons",
	"CNR USINE DE VAUGRIS":        "DRS Vaugris",
	"CNR DIR REGION VALENCE":      "DRI Valence",
	"CNR USINE BOURG LES VALENCE": "DRI Bourg-les-Valences",
	"CNR USINE DE LOGIS NEUF":     "DRI Logis-Neuf",
	"CNR USINE DE CHATEAUNEUF":    "DRI CH9",
	"CNR USINE DE BEAUCHASTEL":    "DRI Beauchastel",
	"CNR DIR REGION AVIGNON":      "DRM Avignon",
	"CNR USINE D AVIGNON":         "DRM Usine Avignon",
	"CNR USINE DE BEAUCAIRE":      "DRM Beaucaire",
	"CNR USINE DE BOLLENE":        "DRM Bollene",
	"CNR USINE DE CADEROUSSE":     "DRM Caderousse",
	"CNR USINE DE BARCARIN":       "DRM Barcarin",
}

// Later matches override earlier ones.
var locationColors = []struct {
	prefix string
	color  string
}{
	{"DM", "#F1C40F"},
	{"DHR", "#3498DB"},
	{"DRS", "#8E44AD"},
	{"DRI", "#E67E22"},
	{"DRM", "#27AE60"},
	{"Paris", "#34495E"},
	{pipeline.NoLocation, "#FC0B03"},
}

var titleCaser = cases.Title(language.French)

// TranslateLocation maps an HR site name to its short display name. Unknown
// sites are returned unchanged; empty ones become "Pas de location".
func TranslateLocation(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return pipeline.NoLocation
	}
	if name, ok := locationNames[raw]; ok {
		return name
	}
	return raw
}

// LocationColor returns the calendar colour of a translated location.
func LocationColor(location string) string {
	color := ""
	for _, c := range locationColors {
		if strings.HasPrefix(location, c.prefix) {
			color = c.color
		}
	}
	return color
}

// DatatableRecord is one dashboard row. Field names follow the dashboard
// contract.
type DatatableRecord struct {
	SPOT             string `json:"SPOT"`
	Statut           string `json:"Statut"`
	Beneficiaire     string `json:"Beneficiaire"`
	Location         string `json:"Location"`
	Priorite         string `json:"Priorite"`
	CI               string `json:"CI"`
	Description      string `json:"Description"`
	RDVDate          string `json:"C_RDV_DATE"`
	RDVState         string `json:"C_RDV_STATE"`
	Operator         string `json:"AP_AM_DONE_BY_OPERATOR_NAME"`
	Score            int    `json:"Score"`
	Justification    string `json:"C_POINTS_JUSTIFICATION"`
	InterventionType int    `json:"AP_INTERVENTION_TYPE"`
	InterType        string `json:"Inter_Type"`
	TicketType       int    `json:"C_TICKET_TYPE"`
	TicketTypeLabel  string `json:"C_TICKET_TYPE_STRING_FR"`
	RequestID        string `json:"AP_SD_REQUEST_ID"`
}

// NewDatatableRecord renders a scored ticket. The RDV date is a millisecond
// epoch, empty when the ticket has none.
func NewDatatableRecord(s domain.ScoredTicket) DatatableRecord {
	rdv := ""
	if s.Appointment.Date != nil {
		rdv = strconv.FormatInt(s.Appointment.Date.UnixMilli(), 10)
	}
	return DatatableRecord{
		SPOT:             s.RFCNumber,
		Statut:           s.Status,
		Beneficiaire:     s.RecipientLastName,
		Location:         TranslateLocation(s.RecipientLocation),
		Priorite:         s.UrgencyLabel,
		CI:               s.CIName,
		Description:      s.Comment,
		RDVDate:          rdv,
		RDVState:         string(s.Appointment.State),
		Operator:         s.Technician,
		Score:            s.Points,
		Justification:    s.Justification(),
		InterventionType: int(s.Classification.InterventionType),
		InterType:        s.Classification.Category,
		TicketType:       int(s.Kind),
		TicketTypeLabel:  s.Kind.LabelFR(),
		RequestID:        strconv.FormatInt(s.RequestID, 10),
	}
}

// NewDatatable renders rows in their given order.
func NewDatatable(rows []domain.ScoredTicket) []DatatableRecord {
	out := make([]DatatableRecord, len(rows))
	for i, r := range rows {
		out[i] = NewDatatableRecord(r)
	}
	return out
}

// TotalScore sums the points of rows.
func TotalScore(rows []domain.ScoredTicket) int {
	total := 0
	for _, r := range rows {
		total += r.Points
	}
	return total
}

// SortByPoints orders rows by points, highest first, then by request id.
func SortByPoints(rows []domain.ScoredTicket) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].RequestID < rows[j].RequestID
	})
}

// TableColumn describes one column of a dashboard table.
type TableColumn struct {
	Order int    `json:"col_order"`
	Name  string `json:"name"`
	ID    string `json:"id"`
}

// Table is a column header plus typed rows.
type Table[R any] struct {
	Columns []TableColumn `json:"columns"`
	Data    []R           `json:"data"`
}

// TechnicianRow is the workload of one technician.
type TechnicianRow struct {
	Name         string `json:"tech_name"`
	TotalTickets int    `json:"total_tickets"`
	Score        int    `json:"score"`
}

// ExpirationRow is one ticket of the SLA tables. SLA is empty in the
// suspended-mail table.
type ExpirationRow struct {
	RFCNumber  string `json:"AP_SD_RFC_NUMBER"`
	Type       string `json:"AP_TYPE_FR"`
	Location   string `json:"AP_SD_RECIPIENT_LOCATION_RH"`
	Technician string `json:"AP_AM_DONE_BY_OPERATOR_NAME"`
	SLA        string `json:"AP_SD_MAX_RESOLUTION_DATE,omitempty"`
}

var (
	technicianColumns = []TableColumn{
		{Order: 1, Name: "Technicien", ID: "tech_name"},
		{Order: 2, Name: "Total", ID: "total_tickets"},
		{Order: 3, Name: "Score", ID: "score"},
	}
	suspendedMailColumns = []TableColumn{
		{Order: 1, Name: "Ticket", ID: "AP_SD_RFC_NUMBER"},
		{Order: 2, Name: "Type", ID: "AP_TYPE_FR"},
		{Order: 3, Name: "Location", ID: "AP_SD_RECIPIENT_LOCATION_RH"},
		{Order: 4, Name: "Technician", ID: "AP_AM_DONE_BY_OPERATOR_NAME"},
	}
	expirationColumns = append(append([]TableColumn(nil), suspendedMailColumns...),
		TableColumn{Order: 5, Name: "SLA", ID: "AP_SD_MAX_RESOLUTION_DATE"})
)

// NewTechnicianTable groups rows by technician. Tickets without one are
// left out. Rows are ordered by score, highest first.
func NewTechnicianTable(rows []domain.ScoredTicket) Table[TechnicianRow] {
	byName := make(map[string]*TechnicianRow)
	for _, r := range rows {
		if r.Technician == "" {
			continue
		}
		row, ok := byName[r.Technician]
		if !ok {
			row = &TechnicianRow{Name: r.Technician}
			byName[r.Technician] = row
		}
		row.TotalTickets++
		row.Score += r.Points
	}

	data := make([]TechnicianRow, 0, len(byName))
	for _, row := range byName {
		data = append(data, *row)
	}
	sort.Slice(data, func(i, j int) bool {
		if data[i].Score != data[j].Score {
			return data[i].Score > data[j].Score
		}
		return data[i].Name < data[j].Name
	})
	return Table[TechnicianRow]{Columns: technicianColumns, Data: data}
}

// NewExpirationTable lists the active tickets whose SLA date is still
// ahead, soonest first.
func NewExpirationTable(rows []domain.ScoredTicket, now time.Time) Table[ExpirationRow] {
	pending := make([]domain.ScoredTicket, 0, len(rows))
	for _, r := range rows {
		if domain.InactiveStatuses.Contains(r.StatusID) || r.MaxResolutionDate == nil {
			continue
		}
		if r.MaxResolutionDate.After(now) {
			pending = append(pending, r)
		}
	}
	sortBySLA(pending)
	pending = limit(pending, TableRowLimit)

	data := make([]ExpirationRow, len(pending))
	for i, r := range pending {
		data[i] = expirationRow(r)
		data[i].SLA = r.MaxResolutionDate.In(now.Location()).Format(slaLayout)
	}
	return Table[ExpirationRow]{Columns: expirationColumns, Data: data}
}

// NewSuspendedMailTable lists rows by SLA date, soonest first. Rows without
// a date come last.
func NewSuspendedMailTable(rows []domain.ScoredTicket) Table[ExpirationRow] {
	sorted := append([]domain.ScoredTicket(nil), rows...)
	sortBySLA(sorted)
	sorted = limit(sorted, TableRowLimit)

	data := make([]ExpirationRow, len(sorted))
	for i, r := range sorted {
		data[i] = expirationRow(r)
	}
	return Table[ExpirationRow]{Columns: suspendedMailColumns, Data: data}
}

func expirationRow(r domain.ScoredTicket) ExpirationRow {
	return ExpirationRow{
		RFCNumber:  r.RFCNumber,
		Type:       r.Classification.Category,
		Location:   TranslateLocation(r.RecipientLocation),
		Technician: r.Technician,
	}
}

func sortBySLA(rows []domain.ScoredTicket) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].MaxResolutionDate, rows[j].MaxResolutionDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

func limit[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

// CalendarEvent is one entry of the dashboard calendars.
type CalendarEvent struct {
	Title         string         `json:"title"`
	Start         string         `json:"start"`
	Color         string         `json:"color"`
	ExtendedProps map[string]any `json:"extendedProps"`
}

// NewRDVCalendar renders the upcoming and overdue appointments, earliest
// first.
func NewRDVCalendar(rows []domain.ScoredTicket, loc *time.Location) []CalendarEvent {
	if loc == nil {
		loc = time.UTC
	}
	dated := make([]domain.ScoredTicket, 0, len(rows))
	for _, r := range rows {
		state := r.Appointment.State
		if r.Appointment.Date != nil && (state == domain.AppointmentUpcoming || state == domain.AppointmentOverdue) {
			dated = append(dated, r)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].Appointment.Date.Before(*dated[j].Appointment.Date)
	})

	events := make([]CalendarEvent, 0, len(dated))
	for _, r := range dated {
		location := TranslateLocation(r.RecipientLocation)
		events = append(events, CalendarEvent{
			Title: r.RFCNumber + " - " + r.RecipientLastName + ", " + location + " - " + r.Classification.Category,
			Start: r.Appointment.Date.In(loc).Format(calendarLayout),
			Color: LocationColor(location),
			ExtendedProps: map[string]any{
				"SPOT":        r.RFCNumber,
				"Nom":         r.RecipientLastName,
				"Location":    location,
				"Ticket type": r.Classification.Category,
				"Description": r.Comment,
			},
		})
	}
	return events
}

// NewEmployeeMovementCalendar renders arrival and departure requests on
// their arrival date. Requests without a readable date are skipped. Arrivals
// needing no equipment are green, everything else blue.
func NewEmployeeMovementCalendar(movements []domain.EmployeeMovement) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(movements))
	for _, m := range movements {
		arrival, err := time.Parse(arrivalLayout, strings.TrimSpace(m.ArrivalDate))
		if err != nil {
			continue
		}

		lastName := strings.ToUpper(strings.TrimSpace(m.LastName))
		firstName := titleCaser.String(strings.TrimSpace(m.FirstName))
		location := TranslateLocation(m.Location)
		pc, phone := 0, 0
		if strings.EqualFold(strings.TrimSpace(m.PCPresent), "Non") {
			pc = 1
		}
		if strings.EqualFold(strings.TrimSpace(m.Telephone), "Oui") {
			phone = 1
		}

		color := "blue"
		if m.CatalogID == domain.CatalogNewArrival && pc == 0 && phone == 0 {
			color = "green"
		}

		events = append(events, CalendarEvent{
			Title: m.RFCNumber + " - " + lastName + ", " + firstName + " - " + location +
				" - PC:" + strconv.Itoa(pc) + " Tel:" + strconv.Itoa(phone),
			Start: arrival.Format(calendarLayout),
			Color: color,
			ExtendedProps: map[string]any{
				"SPOT":      m.RFCNumber,
				"Nom":       lastName,
				"Prenom":    firstName,
				"Location":  location,
				"Contract":  m.Contract,
				"Arrivée":   arrival.Format(calendarLayout),
				"PC":        pc,
				"Telephone": phone,
			},
		})
	}
	return events
}

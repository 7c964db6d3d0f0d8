package domain

import (
	"strings"
	"time"
)

// TicketKind distinguishes incidents from service requests.
type TicketKind int

const (
	KindIncident TicketKind = iota
	KindRequest
)

// KindFromRFC derives the ticket kind from the leading letter of an RFC
// number: "D" marks a request, anything else an incident.
func KindFromRFC(rfc string) TicketKind {
	if strings.HasPrefix(rfc, "D") {
		return KindRequest
	}
	return KindIncident
}

func (k TicketKind) String() string {
	if k == KindRequest {
		return "Request"
	}
	return "Incident"
}

// LabelFR is the label shown on dashboards.
func (k TicketKind) LabelFR() string {
	if k == KindRequest {
		return "Demande"
	}
	return "Incident"
}

// Priority is the upstream urgency code. Lower is more urgent.
type Priority int

const (
	PriorityMajeur    Priority = 1
	PriorityImportant Priority = 2
	PrioritySensible  Priority = 3
	PriorityNormal    Priority = 5
)

func (p Priority) String() string {
	switch p {
	case PriorityMajeur:
		return "Majeur"
	case PriorityImportant:
		return "Important"
	case PrioritySensible:
		return "Sensible"
	case PriorityNormal:
		return "Normal"
	default:
		return "Inconnu"
	}
}

// StatusID is the upstream status code of a ticket.
type StatusID int

const (
	StatusSuspended         StatusID = 5
	StatusOnHold            StatusID = 20
	StatusAwaitingUser      StatusID = 39
	StatusAwaitingUserReply StatusID = 42
)

// StatusSet is a closed set of status codes.
type StatusSet map[StatusID]struct{}

// NewStatusSet builds a set from codes.
func NewStatusSet(ids ...StatusID) StatusSet {
	set := make(StatusSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is in the set.
func (s StatusSet) Contains(id StatusID) bool {
	_, ok := s[id]
	return ok
}

var (
	// ScoringSuspendedStatuses are skipped by the per-day "not suspended" rule.
	ScoringSuspendedStatuses = NewStatusSet(StatusSuspended, StatusOnHold, StatusAwaitingUser)
	// AwaitingUserStatuses are tickets waiting on the requester.
	AwaitingUserStatuses = NewStatusSet(StatusAwaitingUser, StatusAwaitingUserReply)
	// PausedStatuses are tickets explicitly suspended by a technician.
	PausedStatuses = NewStatusSet(StatusSuspended, StatusOnHold)
	// InactiveStatuses covers every suspended or waiting state.
	InactiveStatuses = NewStatusSet(StatusSuspended, StatusOnHold, StatusAwaitingUser, StatusAwaitingUserReply)
)

// Ticket is a normalized upstream ticket plus the attributes derived by the
// feature stages. Derived fields stay zero until their stage has run.
type Ticket struct {
	RequestID         int64
	RFCNumber         string
	StatusID          StatusID
	Status            string
	Urgency           Priority
	UrgencyLabel      string
	CIID              int64
	CIName            string
	Comment           string
	Description       string
	SubmitDate        time.Time
	CreationDate      time.Time
	EndDate           *time.Time
	MaxResolutionDate *time.Time
	RequestorID       int64
	RequestorLastName string
	RecipientID       int64
	RecipientLastName string
	RecipientLocation string
	CatalogID         int64
	CatalogName       string

	Kind           TicketKind
	TicketAge      time.Duration
	LastActionAge  time.Duration
	HasLastAction  bool
	Classification Classification
	Technician     string
	Appointment    Appointment
}

// Base returns the ticket itself; it lets selectors work on any row type
// that embeds a Ticket.
func (t Ticket) Base() Ticket { return t }

// Row is implemented by Ticket and by every type embedding it.
type Row interface {
	Base() Ticket
}

// TicketKey identifies a ticket for the classification lookup.
type TicketKey struct {
	RequestID int64
	RFCNumber string
}

// WholeDays truncates a duration to complete days.
func WholeDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

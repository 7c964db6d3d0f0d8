package selector

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/ticket-priority/internal/domain"
	"github.com/spec-kit/ticket-priority/internal/pipeline"
)

const (
	observationTag = "#tagp# sousobservation"
	appointmentTag = "#tagp# rdv:"

	appointmentLayout = "02/01/2006"

	// MinContactSpanBusinessDays is the span the contacts of a ticket must
	// cover before it counts as "contacted N times".
	MinContactSpanBusinessDays = 7
)

var (
	notificationPattern = regexp.MustCompile(`(?i)Appel sortant utilisateur|Notification au demandeur|Relance vers l'utilisateur|Envoi de mail au demandeur`)
	appointmentDate     = regexp.MustCompile(`:(\d{2}.\d{2}.\d{4})`)
)

// Channel is the support channel the suspension delay depends on.
type Channel int

const (
	ChannelProxy Channel = iota
	ChannelHotline
)

// graceBusinessDays is how long a ticket may stay suspended on a channel.
func (c Channel) graceBusinessDays() int {
	if c == ChannelHotline {
		return 1
	}
	return 5
}

func (c Channel) matches(t domain.Ticket) bool {
	if c == ChannelHotline {
		return t.Classification.InterventionType == domain.InterventionHotline
	}
	return t.Classification.InterventionType.IsProxy()
}

func byRequest(actions []domain.Action) map[int64][]domain.Action {
	grouped := make(map[int64][]domain.Action)
	for _, a := range actions {
		grouped[a.RequestID] = append(grouped[a.RequestID], a)
	}
	return grouped
}

// contactDays returns the requester contact actions of one ticket, one per
// calendar day (the latest of that day), most recent first.
func contactDays(actions []domain.Action) []domain.Action {
	latest := make(map[string]domain.Action)
	for _, a := range actions {
		if !a.HasStart() || !notificationPattern.MatchString(a.Label) {
			continue
		}
		key := a.StartDate.Format("2006-01-02")
		if cur, ok := latest[key]; !ok || a.StartDate.After(cur.StartDate) {
			latest[key] = a
		}
	}
	out := make([]domain.Action, 0, len(latest))
	for _, a := range latest {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out
}

// SuspendedUnansweredByMail keeps tickets waiting on the user that are due
// another contact: never contacted, or silent for 1, 2 or 3 business days
// after the last of 1, 2 or 3+ contacts.
func SuspendedUnansweredByMail[T domain.Row](rows []T, actions []domain.Action, now time.Time) []T {
	grouped := byRequest(actions)
	return Filter(rows, func(t domain.Ticket) bool {
		if !domain.AwaitingUserStatuses.Contains(t.StatusID) {
			return false
		}
		contacts := contactDays(grouped[t.RequestID])
		if len(contacts) == 0 {
			return true
		}
		wait := len(contacts)
		if wait > 3 {
			wait = 3
		}
		return now.After(pipeline.AddBusinessDays(contacts[0].StartDate, wait))
	})
}

// ContactedTimes keeps Normal tickets waiting on the user that were
// contacted on at least minContacts distinct days spread over
// MinContactSpanBusinessDays business days or more.
func ContactedTimes[T domain.Row](rows []T, actions []domain.Action, minContacts int) []T {
	grouped := byRequest(actions)
	return Filter(rows, func(t domain.Ticket) bool {
		if !domain.AwaitingUserStatuses.Contains(t.StatusID) || t.Urgency != domain.PriorityNormal {
			return false
		}
		contacts := contactDays(grouped[t.RequestID])
		if len(contacts) == 0 || len(contacts) < minContacts {
			return false
		}
		first, last := contacts[len(contacts)-1].StartDate, contacts[0].StartDate
		return pipeline.BusinessDaysBetween(first, last) >= MinContactSpanBusinessDays
	})
}

// SuspendedBeyond keeps suspended tickets of the channel whose latest
// suspension is older than the channel's grace period. Tickets without a
// suspension action are not selected.
func SuspendedBeyond[T domain.Row](rows []T, actions []domain.Action, channel Channel, now time.Time) []T {
	suspendedAt := make(map[int64]time.Time)
	for _, a := range actions {
		if a.Type != domain.ActionSuspension || !a.HasStart() {
			continue
		}
		if cur, ok := suspendedAt[a.RequestID]; !ok || a.StartDate.After(cur) {
			suspendedAt[a.RequestID] = a.StartDate
		}
	}
	return Filter(rows, func(t domain.Ticket) bool {
		if !domain.PausedStatuses.Contains(t.StatusID) || !channel.matches(t) {
			return false
		}
		since, ok := suspendedAt[t.RequestID]
		if !ok {
			return false
		}
		return pipeline.AddBusinessDays(since, channel.graceBusinessDays()).Before(now)
	})
}

// UnderObservation keeps tickets tagged "#tagp# sousobservation" in a
// follow-up or tracking note.
func UnderObservation[T domain.Row](rows []T, actions []domain.Action) []T {
	tagged := make(map[int64]struct{})
	for _, a := range actions {
		if domain.TaggedNoteActions.Contains(a.Type) && strings.Contains(a.Description, observationTag) {
			tagged[a.RequestID] = struct{}{}
		}
	}
	return Filter(rows, func(t domain.Ticket) bool {
		_, ok := tagged[t.RequestID]
		return ok
	})
}

// ApplyAppointments sets the RDV state of each ticket from "#tagp# rdv:"
// notes. The latest valid date wins; it is overdue once it is not after now.
func ApplyAppointments(tickets []domain.Ticket, actions []domain.Action, now time.Time, loc *time.Location) []domain.Ticket {
	if loc == nil {
		loc = time.UTC
	}
	type rdv struct {
		date  time.Time
		valid bool
	}
	found := make(map[int64]rdv)
	for _, a := range actions {
		if !domain.TaggedNoteActions.Contains(a.Type) || !strings.Contains(a.Description, appointmentTag) {
			continue
		}
		cur := found[a.RequestID]
		if date, ok := parseAppointment(a.Description, loc); ok && (!cur.valid || date.After(cur.date)) {
			cur = rdv{date: date, valid: true}
		}
		found[a.RequestID] = cur
	}

	out := make([]domain.Ticket, len(tickets))
	for i, t := range tickets {
		t.Appointment = domain.Appointment{State: domain.AppointmentNone}
		if r, ok := found[t.RequestID]; ok {
			switch {
			case !r.valid:
				t.Appointment.State = domain.AppointmentInvalidDate
			case r.date.After(now):
				t.Appointment = domain.Appointment{State: domain.AppointmentUpcoming, Date: timePtr(r.date)}
			default:
				t.Appointment = domain.Appointment{State: domain.AppointmentOverdue, Date: timePtr(r.date)}
			}
		}
		out[i] = t
	}
	return out
}

// WithAppointment keeps the rows in one of the given RDV states.
func WithAppointment[T domain.Row](rows []T, states ...domain.AppointmentState) []T {
	return Filter(rows, func(t domain.Ticket) bool {
		for _, s := range states {
			if t.Appointment.State == s {
				return true
			}
		}
		return false
	})
}

// parseAppointment reads dd/mm/yyyy as midnight UTC shown in loc.
func parseAppointment(description string, loc *time.Location) (time.Time, bool) {
	m := appointmentDate.FindStringSubmatch(description)
	if m == nil {
		return time.Time{}, false
	}
	date, err := time.ParseInLocation(appointmentLayout, m[1], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return date.In(loc), true
}

func timePtr(t time.Time) *time.Time { return &t }

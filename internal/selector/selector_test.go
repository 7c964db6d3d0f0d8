package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-priority/internal/domain"
)

var now = time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC)

func at(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }

func contact(request int64, start time.Time) domain.Action {
	return domain.Action{RequestID: request, Type: domain.ActionOperation, Label: "Envoi de mail au demandeur", StartDate: start}
}

func ids[T domain.Row](rows []T) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Base().RequestID)
	}
	return out
}

func awaiting(id int64) domain.Ticket {
	return domain.Ticket{RequestID: id, StatusID: domain.StatusAwaitingUser, Urgency: domain.PriorityNormal}
}

func TestSuspendedUnansweredByMail(t *testing.T) {
	t.Parallel()

	reply := awaiting(2)
	reply.StatusID = domain.StatusAwaitingUserReply
	active := awaiting(5)
	active.StatusID = 1

	tickets := []domain.Ticket{awaiting(1), reply, awaiting(3), awaiting(4), active, awaiting(6), awaiting(7)}
	actions := []domain.Action{
		contact(2, at(13, 10)),
		contact(3, at(12, 10)), contact(3, at(13, 10)),
		contact(4, at(13, 9)), contact(4, at(13, 11)),
		contact(5, at(1, 10)),
		{RequestID: 6, Type: domain.ActionOperation, Label: "Analyse", StartDate: at(1, 10)},
		contact(7, at(8, 10)), contact(7, at(11, 10)), contact(7, at(12, 10)),
	}

	got := SuspendedUnansweredByMail(tickets, actions, now)

	assert.Equal(t, []int64{1, 2, 4, 6}, ids(got))
}

func TestSuspendedUnansweredByMail_SelectsZeroNotificationTickets(t *testing.T) {
	t.Parallel()

	got := SuspendedUnansweredByMail([]domain.Ticket{awaiting(9)}, nil, now)

	assert.Equal(t, []int64{9}, ids(got))
}

func TestSelectors_ReturnEmpty_When_InputIsEmpty(t *testing.T) {
	t.Parallel()

	var none []domain.Ticket
	assert.Empty(t, SuspendedUnansweredByMail(none, nil, now))
	assert.Empty(t, ContactedTimes(none, nil, 3))
	assert.Empty(t, SuspendedBeyond(none, nil, ChannelHotline, now))
	assert.Empty(t, UnderObservation(none, nil))
	assert.Empty(t, Security(none))
	assert.Empty(t, TicketFlow(none, FlowHotline, true))
	assert.NotNil(t, VIP(none, NewNameSet(nil)))
}

func TestContactedTimes(t *testing.T) {
	t.Parallel()

	sensitive := awaiting(2)
	sensitive.Urgency = domain.PrioritySensible

	tickets := []domain.Ticket{awaiting(1), sensitive, awaiting(3), awaiting(4)}
	actions := []domain.Action{
		contact(1, at(1, 10)), contact(1, at(5, 10)), contact(1, at(12, 10)),
		contact(2, at(1, 10)), contact(2, at(5, 10)), contact(2, at(12, 10)),
		contact(3, at(11, 10)), contact(3, at(12, 10)), contact(3, at(13, 10)),
		contact(4, at(1, 10)), contact(4, at(12, 10)),
	}

	assert.Equal(t, []int64{1}, ids(ContactedTimes(tickets, actions, 3)))
	assert.Equal(t, []int64{1, 4}, ids(ContactedTimes(tickets, actions, 2)))
}

func TestSuspendedBeyond(t *testing.T) {
	t.Parallel()

	hotline := domain.Classification{InterventionType: domain.InterventionHotline}
	proxy := domain.Classification{InterventionType: 4}

	tickets := []domain.Ticket{
		{RequestID: 1, StatusID: domain.StatusSuspended, Classification: hotline},
		{RequestID: 2, StatusID: domain.StatusOnHold, Classification: hotline},
		{RequestID: 3, StatusID: domain.StatusSuspended, Classification: proxy},
		{RequestID: 4, StatusID: domain.StatusSuspended, Classification: proxy},
		{RequestID: 5, StatusID: domain.StatusAwaitingUser, Classification: hotline},
	}
	suspension := func(id int64, start time.Time) domain.Action {
		return domain.Action{RequestID: id, Type: domain.ActionSuspension, StartDate: start}
	}
	actions := []domain.Action{
		suspension(1, at(11, 10)), suspension(1, at(13, 10)),
		suspension(2, at(14, 9)),
		suspension(3, at(7, 10)),
		suspension(5, at(1, 10)),
	}

	assert.Equal(t, []int64{1}, ids(SuspendedBeyond(tickets, actions, ChannelHotline, now)))
	assert.Equal(t, []int64{3}, ids(SuspendedBeyond(tickets, actions, ChannelProxy, now)))
}

func TestUnderObservation(t *testing.T) {
	t.Parallel()

	tickets := []domain.Ticket{{RequestID: 1}, {RequestID: 2}, {RequestID: 3}}
	actions := []domain.Action{
		{RequestID: 1, Type: domain.ActionTrackingNote, Description: "suivi #tagp# sousobservation jusqu'à lundi"},
		{RequestID: 2, Type: domain.ActionOperation, Description: "#tagp# sousobservation"},
		{RequestID: 3, Type: domain.ActionFollowUp, Description: "rien"},
	}

	assert.Equal(t, []int64{1}, ids(UnderObservation(tickets, actions)))
}

func TestApplyAppointments(t *testing.T) {
	t.Parallel()

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	note := func(id int64, desc string) domain.Action {
		return domain.Action{RequestID: id, Type: domain.ActionFollowUp, Description: desc}
	}
	tickets := []domain.Ticket{{RequestID: 1}, {RequestID: 2}, {RequestID: 3}, {RequestID: 4}, {RequestID: 5}}
	actions := []domain.Action{
		note(1, "#tagp# rdv:15/03/2024 matin"),
		note(2, "#tagp# rdv:14/03/2024"),
		note(3, "#tagp# rdv:15.03.2024"),
		note(4, "#tagp# rdv:01/03/2024"), note(4, "#tagp# rdv:20/03/2024"), note(4, "#tagp# rdv:bientot"),
		{RequestID: 5, Type: domain.ActionOperation, Description: "#tagp# rdv:20/03/2024"},
	}

	got := ApplyAppointments(tickets, actions, now, paris)

	assert.Equal(t, domain.AppointmentUpcoming, got[0].Appointment.State)
	require.NotNil(t, got[0].Appointment.Date)
	assert.True(t, got[0].Appointment.Date.Equal(time.Date(2024, 3, 15, 1, 0, 0, 0, paris)))
	assert.Equal(t, domain.AppointmentOverdue, got[1].Appointment.State)
	assert.Equal(t, domain.AppointmentInvalidDate, got[2].Appointment.State)
	assert.Nil(t, got[2].Appointment.Date)
	assert.Equal(t, domain.AppointmentUpcoming, got[3].Appointment.State)
	assert.Equal(t, 20, got[3].Appointment.Date.Day())
	assert.Equal(t, domain.AppointmentNone, got[4].Appointment.State)

	assert.Equal(t, []int64{1, 2, 4}, ids(WithAppointment(got, domain.AppointmentUpcoming, domain.AppointmentOverdue)))
	assert.Empty(t, tickets[0].Appointment.State)
}

func TestApplyAppointments_OverdueWins_When_DateEqualsNow(t *testing.T) {
	t.Parallel()

	midnight := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	actions := []domain.Action{{RequestID: 1, Type: domain.ActionTrackingNote, Description: "#tagp# rdv:14/03/2024"}}

	got := ApplyAppointments([]domain.Ticket{{RequestID: 1}}, actions, midnight, time.UTC)

	assert.Equal(t, domain.AppointmentOverdue, got[0].Appointment.State)
}

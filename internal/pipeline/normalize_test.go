package pipeline

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-priority/internal/domain"
)

func strp(s string) *string { return &s }
func intp(v int64) *int64   { return &v }

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func TestNormalizer_ParseTickets_ConvertsAndCleans(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(paris(t))
	raw := []domain.RawTicket{
		{
			RequestID:         1,
			RFCNumber:         strp("I24030001"),
			SubmitDate:        strp("2024-03-01 08:30:00.123"),
			MaxResolutionDate: strp("N/A"),
			RecipientLastName: strp("Hélène Müller"),
			Comment:           strp("<p>Bonjour, imprimante HS</p>"),
			UrgencyID:         intp(5),
			StatusID:          intp(1),
			CIName:            strp("<NA>"),
		},
		{RequestID: 188214, RFCNumber: strp("I19120809")},
		{RequestID: 2, RFCNumber: strp("D24030002"), RecipientLocation: strp("CNR SIEGE SOCIAL"), UrgencyFR: strp("2-Important")},
	}

	got := n.ParseTickets(raw)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, domain.KindIncident, first.Kind)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 123000000, paris(t)).Unix(), first.SubmitDate.Unix())
	assert.Equal(t, "Europe/Paris", first.SubmitDate.Location().String())
	assert.Equal(t, 9, first.SubmitDate.Hour())
	assert.Nil(t, first.MaxResolutionDate)
	assert.Equal(t, "Helene Muller", first.RecipientLastName)
	assert.Equal(t, "imprimante HS", first.Comment)
	assert.Equal(t, "", first.CIName)
	assert.Equal(t, DefaultUrgencyLabel, first.UrgencyLabel)
	assert.Equal(t, NoLocation, first.RecipientLocation)
	assert.Equal(t, domain.PriorityNormal, first.Urgency)

	second := got[1]
	assert.Equal(t, domain.KindRequest, second.Kind)
	assert.Equal(t, "CNR SIEGE SOCIAL", second.RecipientLocation)
	assert.Equal(t, "2-Important", second.UrgencyLabel)
}

func TestNormalizer_ParseTickets_LeavesUnparseableDatesMissing(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(paris(t))
	got := n.ParseTickets([]domain.RawTicket{{
		RequestID:  3,
		RFCNumber:  strp("I24030003"),
		SubmitDate: strp("01/03/2024"),
		EndDate:    strp("garbage"),
	}})

	require.Len(t, got, 1)
	assert.True(t, got[0].SubmitDate.IsZero())
	assert.Nil(t, got[0].EndDate)
}

func TestNormalizer_NormalizeTickets_IsIdempotent(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(paris(t))
	once := n.ParseTickets([]domain.RawTicket{
		{RequestID: 1, RFCNumber: strp(" I24030001 "), Comment: strp("<<b>i>bonbonjour.jour ok"), SubmitDate: strp("2024-03-01 08:30:00")},
		{RequestID: 2, RFCNumber: strp("D24030002"), RecipientLastName: strp("Gérard"), EndDate: strp("2024-03-02 10:00:00")},
		{RequestID: 185394, RFCNumber: strp("I19110161")},
	})
	twice := n.NormalizeTickets(once)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second normalization changed tickets (-once +twice):\n%s", diff)
	}
	assert.Equal(t, "ok", once[0].Comment)
}

func TestNormalizer_ParseActions_DropsEmptyRows_And_FallsBackToGroup(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(paris(t))
	got := n.ParseActions([]domain.RawAction{
		{ActionID: 10, RequestID: 1, RFCNumber: strp("I24030001"), ActionTypeID: intp(20), StartDate: strp("2024-03-01 10:00:00"), GroupName: strp("Hotline N1")},
		{ActionID: 11, RequestID: 1, RFCNumber: strp("I24030001"), StartDate: strp(" "), DoneByName: strp(""), ActionLabel: strp("")},
		{ActionID: 12, RequestID: 188214, RFCNumber: strp("I19120809"), StartDate: strp("2024-03-01 10:00:00"), DoneByName: strp("Martin")},
		{ActionID: 13, RequestID: 1, RFCNumber: strp("I24030001"), ActionLabel: strp("Notification au demandeur"), DoneByName: strp("Durand")},
	})

	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].ActionID)
	assert.Equal(t, "Hotline N1", got[0].OperatorName)
	assert.Equal(t, domain.ActionOperation, got[0].Type)
	assert.Equal(t, 11, got[0].StartDate.Hour())

	assert.Equal(t, int64(13), got[1].ActionID)
	assert.False(t, got[1].HasStart())
	assert.Equal(t, "Durand", got[1].OperatorName)

	if diff := cmp.Diff(got, n.NormalizeActions(got)); diff != "" {
		t.Fatalf("second normalization changed actions:\n%s", diff)
	}
}

func TestCleanComment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Bonjour, écran noir", "écran noir"},
		{"<div>BONJOUR</div> <br/>souris", "souris"},
		{"pas de salutation", "pas de salutation"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanComment(tt.in), tt.in)
	}
}

func TestPivotEmployeeMovements(t *testing.T) {
	t.Parallel()

	rows := []domain.RawQuestionResult{
		{RequestID: 7, RFCNumber: "D24030007", CatalogID: 5535, QuestionID: domain.QuestionLastName, ResultStringFR: strp("dupont")},
		{RequestID: 7, RFCNumber: "D24030007", CatalogID: 5535, QuestionID: domain.QuestionArrivalDate, Result: strp("04/03/2024")},
		{RequestID: 7, RFCNumber: "D24030007", CatalogID: 5535, QuestionID: domain.QuestionPCPresent, Result: strp("raw"), ResultStringFR: strp("Non")},
		{RequestID: 5, RFCNumber: "D24030005", CatalogID: 5536, QuestionID: domain.QuestionTelephone, ResultStringFR: strp("Oui")},
		{RequestID: 5, RFCNumber: "D24030005", CatalogID: 5536, QuestionID: 999, ResultStringFR: strp("ignored")},
	}

	got := PivotEmployeeMovements(rows)

	want := []domain.EmployeeMovement{
		{RequestID: 5, RFCNumber: "D24030005", CatalogID: 5536, Telephone: "Oui"},
		{RequestID: 7, RFCNumber: "D24030007", CatalogID: 5535, LastName: "dupont", ArrivalDate: "04/03/2024", PCPresent: "Non"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected movements (-want +got):\n%s", diff)
	}
}

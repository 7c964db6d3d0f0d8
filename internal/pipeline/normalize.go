package pipeline

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/spec-kit/ticket-priority/internal/domain"
)

// SourceTimeLayout is the textual timestamp format of the upstream store.
// Timestamps are UTC; an optional fractional second is accepted.
const SourceTimeLayout = "2006-01-02 15:04:05"

const (
	DefaultUrgencyLabel = "4-Normal"
	NoLocation          = "Pas de location"
)

// DefaultDenylist holds request ids the upstream store never closed properly.
var DefaultDenylist = []int64{188214, 185394}

var (
	htmlTagPattern  = regexp.MustCompile(`<[^<]+?>`)
	greetingPattern = regexp.MustCompile(`(?i)bonjour.?`)
)

// Normalizer converts raw upstream rows into typed records in one time zone.
type Normalizer struct {
	loc      *time.Location
	denylist map[int64]struct{}
}

// NewNormalizer builds a normalizer converting timestamps to loc.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	deny := make(map[int64]struct{}, len(DefaultDenylist))
	for _, id := range DefaultDenylist {
		deny[id] = struct{}{}
	}
	return &Normalizer{loc: loc, denylist: deny}
}

// Location returns the canonical time zone.
func (n *Normalizer) Location() *time.Location { return n.loc }

// ParseTickets converts raw ticket rows and normalizes them.
func (n *Normalizer) ParseTickets(raw []domain.RawTicket) []domain.Ticket {
	tickets := make([]domain.Ticket, 0, len(raw))
	for _, r := range raw {
		t := domain.Ticket{
			RequestID:         r.RequestID,
			RFCNumber:         text(r.RFCNumber),
			StatusID:          domain.StatusID(number(r.StatusID)),
			Status:            text(r.StatusFR),
			Urgency:           domain.Priority(number(r.UrgencyID)),
			UrgencyLabel:      text(r.UrgencyFR),
			CIID:              number(r.CIID),
			CIName:            text(r.CIName),
			Comment:           text(r.Comment),
			Description:       text(r.Description),
			SubmitDate:        n.parseTime(r.SubmitDate),
			CreationDate:      n.parseTime(r.CreationDate),
			EndDate:           n.parseOptionalTime(r.EndDate),
			MaxResolutionDate: n.parseOptionalTime(r.MaxResolutionDate),
			RequestorID:       number(r.RequestorID),
			RequestorLastName: text(r.RequestorLastName),
			RecipientID:       number(r.RecipientID),
			RecipientLastName: text(r.RecipientLastName),
			RecipientLocation: text(r.RecipientLocation),
			CatalogID:         number(r.CatalogID),
			CatalogName:       text(r.CatalogName),
		}
		tickets = append(tickets, t)
	}
	return n.NormalizeTickets(tickets)
}

// NormalizeTickets applies the cleanup rules to typed tickets. It is
// idempotent: normalizing its output again changes nothing.
func (n *Normalizer) NormalizeTickets(in []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(in))
	for _, t := range in {
		if n.denied(t.RequestID) {
			continue
		}
		t.RFCNumber = strings.TrimSpace(t.RFCNumber)
		t.Kind = domain.KindFromRFC(t.RFCNumber)
		t.Comment = CleanComment(t.Comment)
		t.RecipientLastName = StripAccents(t.RecipientLastName)
		if t.UrgencyLabel == "" {
			t.UrgencyLabel = DefaultUrgencyLabel
		}
		if t.RecipientLocation == "" {
			t.RecipientLocation = NoLocation
		}
		t.SubmitDate = n.in(t.SubmitDate)
		t.CreationDate = n.in(t.CreationDate)
		t.EndDate = n.inOptional(t.EndDate)
		t.MaxResolutionDate = n.inOptional(t.MaxResolutionDate)
		out = append(out, t)
	}
	return out
}

// ParseActions converts raw action rows and normalizes them.
func (n *Normalizer) ParseActions(raw []domain.RawAction) []domain.Action {
	actions := make([]domain.Action, 0, len(raw))
	for _, r := range raw {
		a := domain.Action{
			ActionID:     r.ActionID,
			RequestID:    r.RequestID,
			RFCNumber:    text(r.RFCNumber),
			Type:         domain.ActionType(number(r.ActionTypeID)),
			Label:        text(r.ActionLabel),
			StartDate:    n.parseTime(r.StartDate),
			EndDate:      n.parseOptionalTime(r.EndDate),
			OperatorName: text(r.DoneByName),
			GroupName:    text(r.GroupName),
			Description:  text(r.Description),
		}
		actions = append(actions, a)
	}
	return n.NormalizeActions(actions)
}

// NormalizeActions drops empty and denied actions and fills the operator
// name from the group when it is missing. It is idempotent.
func (n *Normalizer) NormalizeActions(in []domain.Action) []domain.Action {
	out := make([]domain.Action, 0, len(in))
	for _, a := range in {
		if n.denied(a.RequestID) {
			continue
		}
		if !a.HasStart() && a.OperatorName == "" && a.Label == "" {
			continue
		}
		a.RFCNumber = strings.TrimSpace(a.RFCNumber)
		if a.OperatorName == "" {
			a.OperatorName = a.GroupName
		}
		a.StartDate = n.in(a.StartDate)
		a.EndDate = n.inOptional(a.EndDate)
		out = append(out, a)
	}
	return out
}

func (n *Normalizer) denied(id int64) bool {
	_, ok := n.denylist[id]
	return ok
}

func (n *Normalizer) parseTime(s *string) time.Time {
	v := text(s)
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(SourceTimeLayout, v, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t.In(n.loc)
}

func (n *Normalizer) parseOptionalTime(s *string) *time.Time {
	t := n.parseTime(s)
	if t.IsZero() {
		return nil
	}
	return &t
}

func (n *Normalizer) in(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(n.loc)
}

func (n *Normalizer) inOptional(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.In(n.loc)
	return &v
}

// text dereferences an optional upstream value, mapping the "not
// available" markers and blank strings to "".
func text(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if v == "N/A" || strings.Contains(v, "<NA>") {
		return ""
	}
	return v
}

func number(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// CleanComment strips HTML tags and "bonjour" greetings. Removal repeats
// until the text is stable.
func CleanComment(s string) string {
	for {
		cleaned := htmlTagPattern.ReplaceAllString(s, "")
		cleaned = greetingPattern.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == s {
			return cleaned
		}
		s = cleaned
	}
}

// StripAccents decomposes s and drops combining marks: "Hélène" becomes
// "Helene".
func StripAccents(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

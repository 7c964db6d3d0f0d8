package pipeline

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/spec-kit/ticket-priority/internal/domain"
	"github.com/spec-kit/ticket-priority/pkg/util/errorutil"
)

// ClassificationLookup resolves the intervention type of tickets.
type ClassificationLookup interface {
	Classify(ctx context.Context, keys []domain.TicketKey) (map[int64]domain.Classification, error)
}

// FeatureEngineer derives the temporal and classification attributes the
// scoring rules and selectors need.
type FeatureEngineer struct {
	lookup ClassificationLookup
	now    func() time.Time
}

// NewFeatureEngineer creates an engineer. A nil lookup leaves every ticket
// unclassified.
func NewFeatureEngineer(lookup ClassificationLookup, now func() time.Time) *FeatureEngineer {
	if now == nil {
		now = time.Now
	}
	return &FeatureEngineer{lookup: lookup, now: now}
}

// Enrich runs every stage on owned copies of tickets using one shared "now".
func (f *FeatureEngineer) Enrich(ctx context.Context, tickets []domain.Ticket, actions []domain.Action) ([]domain.Ticket, error) {
	now := f.now()
	out := ApplyTicketKind(tickets)
	out, err := ApplyLastActionAge(out, actions, now)
	if err != nil {
		return nil, err
	}
	out = ApplyTicketAge(out, now)
	return ApplyClassification(ctx, out, f.lookup)
}

// ApplyTicketKind sets Kind from the RFC number.
func ApplyTicketKind(tickets []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, len(tickets))
	for i, t := range tickets {
		t.Kind = domain.KindFromRFC(t.RFCNumber)
		out[i] = t
	}
	return out
}

// ApplyLastActionAge sets LastActionAge from the earliest substantive action
// of each ticket (ties go to the lowest ActionID), rounded to the minute.
// Tickets without such an action keep HasLastAction false.
func ApplyLastActionAge(tickets []domain.Ticket, actions []domain.Action, now time.Time) ([]domain.Ticket, error) {
	earliest := make(map[int64]domain.Action)
	for _, a := range actions {
		if !a.HasStart() || domain.NonSubstantiveActions.Contains(a.Type) {
			continue
		}
		cur, ok := earliest[a.RequestID]
		if !ok || a.StartDate.Before(cur.StartDate) ||
			(a.StartDate.Equal(cur.StartDate) && a.ActionID < cur.ActionID) {
			earliest[a.RequestID] = a
		}
	}

	out := make([]domain.Ticket, len(tickets))
	computed, positive := 0, false
	for i, t := range tickets {
		t.LastActionAge, t.HasLastAction = 0, false
		if a, ok := earliest[t.RequestID]; ok {
			t.LastActionAge = now.Sub(a.StartDate).Round(time.Minute)
			t.HasLastAction = true
			computed++
			if t.LastActionAge > 0 {
				positive = true
			}
		}
		out[i] = t
	}

	if computed > 0 && !positive {
		return nil, errorutil.NewInvariantViolation("no ticket has a positive time since last action", map[string]any{
			"tickets": len(tickets),
			"ages":    computed,
			"now":     now.Format(time.RFC3339),
		})
	}
	return out, nil
}

// ApplyTicketAge sets TicketAge from the submission date, rounded to the minute.
func ApplyTicketAge(tickets []domain.Ticket, now time.Time) []domain.Ticket {
	out := make([]domain.Ticket, len(tickets))
	for i, t := range tickets {
		t.TicketAge = 0
		if !t.SubmitDate.IsZero() {
			t.TicketAge = now.Sub(t.SubmitDate).Round(time.Minute)
		}
		out[i] = t
	}
	return out
}

// ApplyClassification attaches the external classification. Unresolved
// tickets get domain.Unclassified.
func ApplyClassification(ctx context.Context, tickets []domain.Ticket, lookup ClassificationLookup) ([]domain.Ticket, error) {
	found := map[int64]domain.Classification{}
	if lookup != nil && len(tickets) > 0 {
		keys := make([]domain.TicketKey, len(tickets))
		for i, t := range tickets {
			keys[i] = domain.TicketKey{RequestID: t.RequestID, RFCNumber: t.RFCNumber}
		}
		var err error
		found, err = lookup.Classify(ctx, keys)
		if err != nil {
			return nil, errorutil.NewUpstreamError("classification", err)
		}
	}

	out := make([]domain.Ticket, len(tickets))
	for i, t := range tickets {
		if c, ok := found[t.RequestID]; ok {
			t.Classification = c
		} else {
			t.Classification = domain.Unclassified
		}
		out[i] = t
	}
	return out, nil
}

// ApplyTechnician attaches the operator of the most recent assignment
// action of each ticket; on equal start times the highest ActionID wins.
// A non-empty filter keeps only tickets whose technician matches it.
func ApplyTechnician(tickets []domain.Ticket, actions []domain.Action, filter string) []domain.Ticket {
	latest := make(map[int64]domain.Action)
	for _, a := range actions {
		if !a.HasStart() || !domain.AssignmentActions.Contains(a.Type) {
			continue
		}
		cur, ok := latest[a.RequestID]
		if !ok || a.StartDate.After(cur.StartDate) ||
			(a.StartDate.Equal(cur.StartDate) && a.ActionID > cur.ActionID) {
			latest[a.RequestID] = a
		}
	}

	match := TechnicianMatcher(filter)
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		t.Technician = ""
		if a, ok := latest[t.RequestID]; ok {
			t.Technician = a.OperatorName
		}
		if match != nil && !match(t.Technician) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TechnicianMatcher compiles a case-insensitive filter. An invalid pattern
// is matched as a plain substring. It returns nil for an empty filter.
func TechnicianMatcher(filter string) func(string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + filter)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(filter))
	}
	return func(name string) bool {
		return name != "" && re.MatchString(name)
	}
}

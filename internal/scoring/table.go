package scoring

import (
	"fmt"

	"github.com/spec-kit/ticket-priority/internal/domain"
)

// Rule names one additive scoring rule.
type Rule string

const (
	RuleSinceCreation   Rule = "since_creation"
	RuleSinceLastAction Rule = "since_last_action"
	RuleNotSuspended    Rule = "not_suspended"
	RuleSecurity        Rule = "security"
	RuleVIP             Rule = "vip"
	RuleIndustrial      Rule = "industrial"
)

// Rate is one cell of the priority x kind table: a flat base plus points per
// whole day, and the reason shown to operators.
type Rate struct {
	Base   int
	PerDay int
	Reason string
}

// Points applies the rate to a number of whole days.
func (r Rate) Points(days int) int {
	if days < 0 {
		days = 0
	}
	return r.Base + r.PerDay*days
}

type rateKey struct {
	priority domain.Priority
	kind     domain.TicketKind
	rule     Rule
}

type tableRow struct {
	priority     domain.Priority
	kind         domain.TicketKind
	base         int
	creation     int
	lastAction   int
	notSuspended int
}

var tableRows = []tableRow{
	{domain.PriorityNormal, domain.KindIncident, 1, 3, 3, 25},
	{domain.PriorityNormal, domain.KindRequest, 0, 1, 1, 10},
	{domain.PrioritySensible, domain.KindIncident, 10, 10, 10, 50},
	{domain.PrioritySensible, domain.KindRequest, 3, 3, 3, 25},
	{domain.PriorityImportant, domain.KindIncident, 100, 100, 100, 100},
	{domain.PriorityImportant, domain.KindRequest, 30, 30, 30, 50},
	{domain.PriorityMajeur, domain.KindIncident, 1000, 1000, 1000, 1000},
	{domain.PriorityMajeur, domain.KindRequest, 300, 300, 300, 300},
}

var rates = buildRates(tableRows)

func buildRates(rows []tableRow) map[rateKey]Rate {
	out := make(map[rateKey]Rate, len(rows)*3)
	for _, r := range rows {
		label := r.kind.LabelFR() + "-" + r.priority.String()

		creation := Rate{Base: r.base, PerDay: r.creation}
		if r.priority == domain.PriorityNormal {
			creation.Reason = fmt.Sprintf("+%d pt/jour pour %s depuis creation", r.creation, label)
		} else {
			creation.Reason = fmt.Sprintf("%d base + %d pt/jour pour %s depuis creation", r.base, r.creation, label)
		}
		out[rateKey{r.priority, r.kind, RuleSinceCreation}] = creation

		out[rateKey{r.priority, r.kind, RuleSinceLastAction}] = Rate{
			PerDay: r.lastAction,
			Reason: fmt.Sprintf("+%d pt/jour pour %s depuis dernière action", r.lastAction, label),
		}
		out[rateKey{r.priority, r.kind, RuleNotSuspended}] = Rate{
			PerDay: r.notSuspended,
			Reason: fmt.Sprintf("+%d pt/jour pour %s non suspendu", r.notSuspended, label),
		}
	}
	return out
}

// Lookup returns the table cell for a priority, kind and per-day rule.
// Unknown priorities (missing urgency included) have no cell.
func Lookup(priority domain.Priority, kind domain.TicketKind, rule Rule) (Rate, bool) {
	r, ok := rates[rateKey{priority, kind, rule}]
	return r, ok
}

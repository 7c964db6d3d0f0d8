// Package scoring turns enriched tickets into points. Each rule is an
// independent evaluator; a ticket's score is the sum of what every matching
// evaluator contributed, and the ordered contributions form its audit trail.
package scoring

import (
	"github.com/spec-kit/ticket-priority/internal/domain"
	"github.com/spec-kit/ticket-priority/internal/selector"
)

const (
	securityPoints   = 1000
	industrialPoints = 500
	vipBase          = 500
	vipPerDay        = 100

	securityReason   = "+1000 pts ticket sécurité"
	vipReason        = "500 base + 100 pts/jour ticket VIP depuis dernière action"
	industrialReason = "500 points pour poste industriel"
)

// Evaluator is one additive rule. Eval reports ok=false when the rule does
// not apply to the ticket.
type Evaluator struct {
	Rule Rule
	Eval func(t domain.Ticket) (points int, reason string, ok bool)
}

// Engine applies its evaluators in order. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	evaluators []Evaluator
}

// NewEngine builds the default rule set: the three per-day table rules
// followed by the security, VIP and industrial overlays.
func NewEngine(vip selector.NameSet) *Engine {
	return NewEngineWith(DefaultEvaluators(vip)...)
}

// NewEngineWith builds an engine from an explicit evaluator list.
func NewEngineWith(evaluators ...Evaluator) *Engine {
	return &Engine{evaluators: append([]Evaluator(nil), evaluators...)}
}

// DefaultEvaluators returns the production rules in evaluation order.
func DefaultEvaluators(vip selector.NameSet) []Evaluator {
	return []Evaluator{
		SinceCreation(),
		SinceLastAction(),
		NotSuspended(),
		Security(),
		VIP(vip),
		Industrial(),
	}
}

// Rules lists the rule names in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, 0, len(e.evaluators))
	for _, ev := range e.evaluators {
		out = append(out, ev.Rule)
	}
	return out
}

// Score evaluates every ticket. Output order follows input order.
func (e *Engine) Score(tickets []domain.Ticket) []domain.ScoredTicket {
	out := make([]domain.ScoredTicket, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, e.ScoreOne(t))
	}
	return out
}

// ScoreOne evaluates a single ticket.
func (e *Engine) ScoreOne(t domain.Ticket) domain.ScoredTicket {
	scored := domain.ScoredTicket{Ticket: t}
	for _, ev := range e.evaluators {
		points, reason, ok := ev.Eval(t)
		if !ok {
			continue
		}
		scored.Points += points
		scored.Trail = append(scored.Trail, domain.Contribution{Rule: string(ev.Rule), Points: points, Reason: reason})
	}
	return scored
}

// SinceCreation scores the base plus points per day of ticket age.
func SinceCreation() Evaluator {
	return tableRule(RuleSinceCreation, func(t domain.Ticket) (int, bool) {
		return domain.WholeDays(t.TicketAge), true
	})
}

// SinceLastAction scores points per day since the last substantive action.
// Tickets without one get nothing.
func SinceLastAction() Evaluator {
	return tableRule(RuleSinceLastAction, lastActionDays)
}

// NotSuspended scores points per day since the last action for tickets that
// are not suspended or waiting on the user.
func NotSuspended() Evaluator {
	return tableRule(RuleNotSuspended, func(t domain.Ticket) (int, bool) {
		if domain.ScoringSuspendedStatuses.Contains(t.StatusID) {
			return 0, false
		}
		return lastActionDays(t)
	})
}

// Security adds a flat bonus to security tickets.
func Security() Evaluator {
	return Evaluator{Rule: RuleSecurity, Eval: func(t domain.Ticket) (int, string, bool) {
		if !selector.IsSecurity(t) {
			return 0, "", false
		}
		return securityPoints, securityReason, true
	}}
}

// VIP adds a base plus points per day since the last action when the
// requestor or recipient is on the list. A listed ticket with no
// substantive action still earns the base; only the per-day part needs a
// last action. Older dashboards scored such tickets 0 for the whole overlay.
func VIP(names selector.NameSet) Evaluator {
	return Evaluator{Rule: RuleVIP, Eval: func(t domain.Ticket) (int, string, bool) {
		if !names.Matches(t) {
			return 0, "", false
		}
		days, _ := lastActionDays(t)
		return vipBase + vipPerDay*days, vipReason, true
	}}
}

// Industrial adds a flat bonus to tickets on industrial workstations.
func Industrial() Evaluator {
	return Evaluator{Rule: RuleIndustrial, Eval: func(t domain.Ticket) (int, string, bool) {
		if !selector.IsIndustrial(t) {
			return 0, "", false
		}
		return industrialPoints, industrialReason, true
	}}
}

func tableRule(rule Rule, days func(domain.Ticket) (int, bool)) Evaluator {
	return Evaluator{Rule: rule, Eval: func(t domain.Ticket) (int, string, bool) {
		rate, ok := Lookup(t.Urgency, t.Kind, rule)
		if !ok {
			return 0, "", false
		}
		d, ok := days(t)
		if !ok {
			return 0, "", false
		}
		return rate.Points(d), rate.Reason, true
	}}
}

func lastActionDays(t domain.Ticket) (int, bool) {
	if !t.HasLastAction {
		return 0, false
	}
	return domain.WholeDays(t.LastActionAge), true
}

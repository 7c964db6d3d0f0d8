package domain

import "strings"

// JustificationSeparator joins rule explanations in the display string.
const JustificationSeparator = " // "

// Contribution is what one scoring rule added to one ticket.
type Contribution struct {
	Rule   string
	Points int
	Reason string
}

// ScoredTicket is a ticket with its accumulated points and the ordered trail
// of contributions that produced them.
type ScoredTicket struct {
	Ticket
	Points int
	Trail  []Contribution
}

// Justification flattens the trail into the display string.
func (s ScoredTicket) Justification() string {
	reasons := make([]string, 0, len(s.Trail))
	for _, c := range s.Trail {
		if c.Reason != "" {
			reasons = append(reasons, c.Reason)
		}
	}
	return strings.Join(reasons, JustificationSeparator)
}

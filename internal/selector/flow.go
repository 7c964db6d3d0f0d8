package selector

import "github.com/spec-kit/ticket-priority/internal/domain"

// Flow names a slice of the ticket flow by kind and intervention channel.
type Flow string

const (
	FlowAll             Flow = ""
	FlowHotline         Flow = "hotline"
	FlowProxy           Flow = "proxy"
	FlowUnclassified    Flow = "unclassified"
	FlowIncident        Flow = "incident"
	FlowRequest         Flow = "request"
	FlowIncidentHotline Flow = "incident+hotline"
	FlowIncidentProxy   Flow = "incident+proxy"
	FlowRequestHotline  Flow = "request+hotline"
	FlowRequestProxy    Flow = "request+proxy"
)

var knownFlows = map[Flow]struct{}{
	FlowAll: {}, FlowHotline: {}, FlowProxy: {}, FlowUnclassified: {},
	FlowIncident: {}, FlowRequest: {}, FlowIncidentHotline: {},
	FlowIncidentProxy: {}, FlowRequestHotline: {}, FlowRequestProxy: {},
}

// Valid reports whether f is a known flow.
func (f Flow) Valid() bool {
	_, ok := knownFlows[f]
	return ok
}

// Matches reports whether t belongs to the flow. FlowAll and unknown flows
// match every ticket.
func (f Flow) Matches(t domain.Ticket) bool {
	it := t.Classification.InterventionType
	hotline := it == domain.InterventionHotline
	proxy := it.IsProxy()
	incident := t.Kind == domain.KindIncident
	request := t.Kind == domain.KindRequest

	switch f {
	case FlowHotline:
		return hotline
	case FlowProxy:
		return proxy
	case FlowUnclassified:
		return it == domain.InterventionUnclassified
	case FlowIncident:
		return incident
	case FlowRequest:
		return request
	case FlowIncidentHotline:
		return incident && hotline
	case FlowIncidentProxy:
		return incident && proxy
	case FlowRequestHotline:
		return request && hotline
	case FlowRequestProxy:
		return request && proxy
	default:
		return true
	}
}

// TicketFlow keeps the tickets of one flow. With activeOnly set, suspended
// and waiting tickets are dropped first.
func TicketFlow[T domain.Row](rows []T, flow Flow, activeOnly bool) []T {
	if activeOnly {
		rows = NotSuspended(rows)
	}
	return Filter(rows, flow.Matches)
}

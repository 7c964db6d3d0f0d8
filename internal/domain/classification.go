package domain

import "time"

// InterventionType is the support channel a ticket was classified into.
type InterventionType int

const (
	InterventionUnclassified InterventionType = 1
	InterventionHotline      InterventionType = 2
	interventionProxyFirst   InterventionType = 3
	interventionProxyLast    InterventionType = 16
)

// IsProxy reports whether the type is one of the on-site (proximity) channels.
func (t InterventionType) IsProxy() bool {
	return t >= interventionProxyFirst && t <= interventionProxyLast
}

// Classification is the result of the external classification lookup.
type Classification struct {
	InterventionType InterventionType
	Category         string
}

// Unclassified is assigned to tickets the lookup could not resolve.
var Unclassified = Classification{InterventionType: InterventionUnclassified, Category: "Non classé"}

// AppointmentState is the RDV status derived from "#tagp# rdv:" markers.
type AppointmentState string

const (
	AppointmentNone        AppointmentState = "Pas de RDV"
	AppointmentInvalidDate AppointmentState = "RDV - date invalide"
	AppointmentUpcoming    AppointmentState = "RDV - en cours"
	AppointmentOverdue     AppointmentState = "RDV - en retard"
)

// Appointment is the latest RDV recorded on a ticket.
type Appointment struct {
	State AppointmentState
	Date  *time.Time
}

// Package selector holds the pure predicates that carve named ticket subsets
// out of an enriched batch. Every selector accepts any row embedding a
// domain.Ticket, never mutates its input and returns an empty slice for
// empty input.
package selector

import (
	"regexp"
	"strings"

	"github.com/spec-kit/ticket-priority/internal/domain"
	"github.com/spec-kit/ticket-priority/internal/pipeline"
)

var (
	securityCIs     = map[int64]struct{}{9926: {}, 8696: {}}
	securityPattern = regexp.MustCompile(`(?i)(anti)?virus|^vol.?$|pirat(é|e)|malware|(mc)?afee`)

	industrialCIs     = stringSet("POSTES INDUSTRIELS_ENV", "Mustang_Mobilité_ENV")
	industrialPattern = regexp.MustCompile(`(?i)scada|tablette|conduite`)

	digipassCIs     = stringSet("DIGIPASS", "TELETRAVAIL_ENV", "Azure.Microsoft")
	digipassPattern = regexp.MustCompile(`(?i)big.?ip|vpn`)

	skypeCIs     = stringSet("SKYPE_ENV")
	outlookCIs   = stringSet("OUTLOOK_APP", "MESSAGERIE_ENV", "WEBMAIL_APP", "FILTRAGE_MAIL_ENV", "OFFICE_APP")
	telephoneCIs = stringSet("TELEPHONIE_MOBILE_ENV", "TELEPHONIE_ENV")

	softwareInstallCatalog = int64Set(
		5687, 5564, 5573, 5577, 5578, 5580, 5581, 5582, 5583, 5584, 5593, 5594, 5595,
		5597, 5598, 5599, 5600, 5601, 5602, 5603, 5604, 5606, 5607, 5608, 5793, 5609,
		5610, 5611, 5613, 5614, 5729, 5616, 5680, 5398, 5686, 5691, 5690, 5840, 5757,
		5758, 5759, 5760, 5796, 5836, 5837, 5846, 5617,
	)
)

// Filter keeps the rows whose ticket satisfies keep.
func Filter[T domain.Row](rows []T, keep func(domain.Ticket) bool) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if keep(r.Base()) {
			out = append(out, r)
		}
	}
	return out
}

// IsSecurity matches antivirus, theft and intrusion tickets.
func IsSecurity(t domain.Ticket) bool {
	if _, ok := securityCIs[t.CIID]; ok {
		return true
	}
	return securityPattern.MatchString(t.Comment)
}

// IsIndustrial matches tickets on industrial workstations.
func IsIndustrial(t domain.Ticket) bool {
	if _, ok := industrialCIs[t.CIName]; ok {
		return true
	}
	return industrialPattern.MatchString(t.Comment)
}

func Security[T domain.Row](rows []T) []T   { return Filter(rows, IsSecurity) }
func Industrial[T domain.Row](rows []T) []T { return Filter(rows, IsIndustrial) }

// VIP keeps tickets whose requestor or recipient is on the list.
func VIP[T domain.Row](rows []T, names NameSet) []T { return Filter(rows, names.Matches) }

// SensitivePersonnel keeps tickets whose requestor or recipient is on the
// sensitive personnel list.
func SensitivePersonnel[T domain.Row](rows []T, names NameSet) []T {
	return Filter(rows, names.Matches)
}

func SoftwareInstall[T domain.Row](rows []T) []T {
	return Filter(rows, func(t domain.Ticket) bool {
		_, ok := softwareInstallCatalog[t.CatalogID]
		return ok
	})
}

func NewArrivals[T domain.Row](rows []T) []T {
	return Filter(rows, func(t domain.Ticket) bool { return t.CatalogID == domain.CatalogNewArrival })
}

// Urgent keeps Majeur and Important tickets.
func Urgent[T domain.Row](rows []T) []T {
	return Filter(rows, func(t domain.Ticket) bool {
		return t.Urgency == domain.PriorityMajeur || t.Urgency == domain.PriorityImportant
	})
}

// Digipass keeps remote-access tickets (tokens, VPN, BIG-IP).
func Digipass[T domain.Row](rows []T) []T {
	return Filter(rows, func(t domain.Ticket) bool {
		_, ok := digipassCIs[t.CIName]
		return ok || digipassPattern.MatchString(t.Comment)
	})
}

func Skype[T domain.Row](rows []T) []T     { return byCI(rows, skypeCIs) }
func Outlook[T domain.Row](rows []T) []T   { return byCI(rows, outlookCIs) }
func Telephone[T domain.Row](rows []T) []T { return byCI(rows, telephoneCIs) }

// NotSuspended drops every suspended or waiting ticket.
func NotSuspended[T domain.Row](rows []T) []T {
	return Filter(rows, func(t domain.Ticket) bool { return !domain.InactiveStatuses.Contains(t.StatusID) })
}

func byCI[T domain.Row](rows []T, cis map[string]struct{}) []T {
	return Filter(rows, func(t domain.Ticket) bool {
		_, ok := cis[t.CIName]
		return ok
	})
}

// NameSet matches last names ignoring case and accents.
type NameSet map[string]struct{}

// NewNameSet builds a set from display names.
func NewNameSet(names []string) NameSet {
	set := make(NameSet, len(names))
	for _, n := range names {
		if key := nameKey(n); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

// Contains reports whether name is in the set.
func (s NameSet) Contains(name string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[nameKey(name)]
	return ok
}

// Matches reports whether the requestor or the recipient is in the set.
func (s NameSet) Matches(t domain.Ticket) bool {
	return s.Contains(t.RequestorLastName) || s.Contains(t.RecipientLastName)
}

func nameKey(name string) string {
	return strings.ToUpper(pipeline.StripAccents(strings.TrimSpace(name)))
}

func stringSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func int64Set(values ...int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

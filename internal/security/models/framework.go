package models

import (
	"slices"
	"strings"
)

// Framework is a regulatory ruleset events are scored against.
type Framework string

const (
	FrameworkSOC2     Framework = "SOC2"
	FrameworkGDPR     Framework = "GDPR"
	FrameworkHIPAA    Framework = "HIPAA"
	FrameworkISO27001 Framework = "ISO27001"
)

// Frameworks lists every supported framework in reporting order.
var Frameworks = []Framework{FrameworkSOC2, FrameworkGDPR, FrameworkHIPAA, FrameworkISO27001}

// ParseFramework accepts framework names case-insensitively.
func ParseFramework(s string) (Framework, bool) {
	for _, f := range Frameworks {
		if strings.EqualFold(string(f), s) {
			return f, true
		}
	}
	return "", false
}

// Data classifications recognised on resource_type and metadata.
const (
	ClassPHI          = "phi"
	ClassPII          = "pii"
	ClassPersonalData = "personal_data"
)

// IsPersonalData reports whether a classification falls under GDPR.
func IsPersonalData(class string) bool {
	class = strings.ToLower(class)
	return class == ClassPII || class == ClassPersonalData
}

// IsPHI reports whether a classification falls under HIPAA.
func IsPHI(class string) bool {
	return strings.ToLower(class) == ClassPHI
}

// Classification returns the data classification of a data-access event,
// preferring resource_type over the data_classification metadata key.
func (e SecurityEvent) Classification() string {
	if e.ResourceType != "" {
		return strings.ToLower(e.ResourceType)
	}
	return strings.ToLower(e.MetaString("data_classification"))
}

// IsPersonalDataAccess reports whether e is a DATA_ACCESS on GDPR-scoped data.
func (e SecurityEvent) IsPersonalDataAccess() bool {
	if e.Kind != KindDataAccess {
		return false
	}
	return IsPersonalData(e.Classification()) || e.MetaBool("sensitive")
}

// IsPHIAccess reports whether e is a DATA_ACCESS on HIPAA-scoped data.
func (e SecurityEvent) IsPHIAccess() bool {
	return e.Kind == KindDataAccess && IsPHI(e.Classification())
}

// EventFrameworks derives the frameworks an event is relevant to, merged with
// any the caller supplied. The result is deduplicated in reporting order.
func EventFrameworks(e SecurityEvent) []Framework {
	set := map[Framework]bool{FrameworkSOC2: true}
	for _, f := range e.ComplianceFrameworks {
		set[f] = true
	}
	switch e.Kind {
	case KindAuthentication, KindAuthorization, KindAlert, KindAnomaly:
		set[FrameworkISO27001] = true
	case KindDataAccess:
		if e.IsPersonalDataAccess() {
			set[FrameworkGDPR] = true
		}
		if e.IsPHIAccess() {
			set[FrameworkHIPAA] = true
		}
	}
	return orderedFrameworks(set)
}

// AuditFrameworks maps an audit trail's resource type onto frameworks. SOC2 is
// always present.
func AuditFrameworks(resourceType string) []Framework {
	set := map[Framework]bool{FrameworkSOC2: true}
	rt := strings.ToLower(resourceType)
	switch {
	case IsPHI(rt):
		set[FrameworkHIPAA] = true
	case IsPersonalData(rt):
		set[FrameworkGDPR] = true
	case rt == "security_event" || rt == "anomaly" || rt == "incident":
		set[FrameworkISO27001] = true
	}
	return orderedFrameworks(set)
}

func orderedFrameworks(set map[Framework]bool) []Framework {
	out := make([]Framework, 0, len(set))
	for _, f := range Frameworks {
		if set[f] {
			out = append(out, f)
		}
	}
	return slices.Clip(out)
}

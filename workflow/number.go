package workflow

import (
	"fmt"
	"strings"
	"time"
)

// CounterScope names the counter a record number is drawn from. Counters are
// per kind and per year; service requests are further split by service code.
func CounterScope(kind Kind, at time.Time, prefix string) string {
	scope := fmt.Sprintf("%s:%d", kind, at.Year())
	if prefix != "" {
		scope += ":" + strings.ToUpper(prefix)
	}
	return scope
}

// FormatNumber renders the human readable number for sequence value seq.
func FormatNumber(kind Kind, at time.Time, prefix string, seq int64) string {
	yy := at.Year() % 100
	switch kind {
	case KindServiceRequest:
		return fmt.Sprintf("GS-%02d-%s-%04d", yy, strings.ToUpper(prefix), seq)
	case KindLegalCase:
		return fmt.Sprintf("LC%d%06d", at.Year(), seq)
	case KindAppointment:
		return fmt.Sprintf("APT-%02d-%04d", yy, seq)
	case KindEmergency:
		return fmt.Sprintf("EM-%02d-%04d", yy, seq)
	case KindDiscussion:
		return fmt.Sprintf("FD-%02d-%04d", yy, seq)
	default:
		return fmt.Sprintf("%s-%02d-%04d", strings.ToUpper(string(kind)), yy, seq)
	}
}

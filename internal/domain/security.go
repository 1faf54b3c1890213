package domain

import "time"

// Severity buckets a security finding by impact (SPEC_FULL §2 security
// module, grounded on the Python original's severity classification).
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SecurityScanResult is one append-only scan record for an entity
// path (spec.md §3 Security scan result). The "current" result for a
// path is the most recent by Timestamp.
type SecurityScanResult struct {
	ScanID    string    `json:"scan_id" bson:"scan_id"`
	Path      string    `json:"path" bson:"path"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	IsSafe    bool      `json:"is_safe" bson:"is_safe"`

	CriticalCount int `json:"critical_count" bson:"critical_count"`
	HighCount     int `json:"high_count" bson:"high_count"`
	MediumCount   int `json:"medium_count" bson:"medium_count"`
	LowCount      int `json:"low_count" bson:"low_count"`

	Analyzers []string `json:"analyzers" bson:"analyzers"`
	RawOutput string   `json:"raw_output,omitempty" bson:"raw_output,omitempty"`

	Failed       bool   `json:"failed" bson:"failed"`
	ErrorMessage string `json:"error_message,omitempty" bson:"error_message,omitempty"`
}

// HasBlockingFindings reports whether the scan found anything at or
// above the given minimum severity.
func (r *SecurityScanResult) HasBlockingFindings(min Severity) bool {
	switch min {
	case SeverityLow:
		return r.CriticalCount+r.HighCount+r.MediumCount+r.LowCount > 0
	case SeverityMedium:
		return r.CriticalCount+r.HighCount+r.MediumCount > 0
	case SeverityHigh:
		return r.CriticalCount+r.HighCount > 0
	default:
		return r.CriticalCount > 0
	}
}

package reports

import (
	"fmt"
	"time"
)

// MaxCreateAttempts bounds how often a creation unit (code + insert + counters)
// is replayed after losing a race for the period's sequence.
const MaxCreateAttempts = 3

const codePrefix = "SR"

// PeriodFor returns the code period for t: the UTC calendar year.
func PeriodFor(t time.Time) string {
	return t.UTC().Format("2006")
}

// FormatCode renders a report code such as SR-2026-0042. The ordinal is padded
// to four digits and grows wider once a period exceeds 9999 reports.
func FormatCode(period string, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", codePrefix, period, seq)
}

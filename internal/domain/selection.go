package domain

// MostRecentMutation returns the record with the latest date. Among records
// sharing the latest date the first one in API order wins. ok is false for an
// empty slice.
func MostRecentMutation(records []MutationRecord) (MutationRecord, bool) {
	if len(records) == 0 {
		return MutationRecord{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.Date.After(best.Date) {
			best = r
		}
	}
	return best, true
}

// FilterByStreetNumber keeps the records whose street number is exactly
// number, preserving order. The result is never nil.
func FilterByStreetNumber(records []DiagnosticRecord, number string) []DiagnosticRecord {
	out := make([]DiagnosticRecord, 0, len(records))
	for _, r := range records {
		if r.StreetNumber == number {
			out = append(out, r)
		}
	}
	return out
}

// FirstDiagnostic returns a copy of the first record, or nil when there is none.
func FirstDiagnostic(records []DiagnosticRecord) *DiagnosticRecord {
	if len(records) == 0 {
		return nil
	}
	d := records[0]
	return &d
}

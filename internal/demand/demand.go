// Package demand implements the merge, validation, and missing-field logic
// for travel demand records. No I/O lives here — the package is pure functions
// over domain types so the conversation engine stays trivially testable.
package demand

import (
	"fmt"
	"strings"
	"time"

	"github.com/planmate/backend/internal/domain"
)

// Merge applies one extraction pass to the current record and returns the
// result as a new record. For each field with a non-empty value in partial,
// the current value is overwritten; absent fields are left untouched.
// Merge never clears a previously set field and is applied atomically —
// either all non-empty fields land or (trivially, for an empty partial)
// nothing changes. Merging the same partial twice is a no-op the second time.
func Merge(current domain.DemandRecord, partial domain.PartialDemand) domain.DemandRecord {
	merged := current

	if partial.Destination != "" {
		merged.Destination = partial.Destination
	}
	if partial.StartDate != "" {
		merged.StartDate = partial.StartDate
	}
	if partial.EndDate != "" {
		merged.EndDate = partial.EndDate
	}
	if partial.Budget != 0 {
		merged.Budget = partial.Budget
	}
	if partial.Travelers != 0 {
		merged.Travelers = partial.Travelers
	}
	if partial.Preferences != "" {
		merged.Preferences = partial.Preferences
	}
	if partial.SpecialRequirements != "" {
		merged.SpecialRequirements = partial.SpecialRequirements
	}

	return merged
}

// Missing returns the required fields the record does not yet hold, in the
// fixed order of domain.RequiredFields. An empty result means the record is
// ready for confirmation. The order is stable — it determines prompt
// phrasing order, nothing more.
func Missing(record domain.DemandRecord) []domain.FieldID {
	var missing []domain.FieldID
	for _, f := range domain.RequiredFields {
		if !has(record, f) {
			missing = append(missing, f)
		}
	}
	return missing
}

func has(record domain.DemandRecord, f domain.FieldID) bool {
	switch f {
	case domain.FieldDestination:
		return strings.TrimSpace(record.Destination) != ""
	case domain.FieldStartDate:
		return record.StartDate != ""
	case domain.FieldEndDate:
		return record.EndDate != ""
	case domain.FieldBudget:
		return record.Budget != 0
	case domain.FieldTravelers:
		return record.Travelers != 0
	}
	return false
}

// Validate checks the record against the completeness rules, stopping at the
// first failure. Checks run in a fixed order: destination, start date, end
// date, date ordering, budget, travelers. A failure is reported as a
// *domain.ValidationError (matching domain.ErrValidation under errors.Is);
// nil means the record is valid and ready for plan generation.
func Validate(record domain.DemandRecord) error {
	if strings.TrimSpace(record.Destination) == "" {
		return &domain.ValidationError{Reason: domain.EmptyDestination, Message: "目的地不能为空"}
	}
	if record.StartDate == "" {
		return &domain.ValidationError{Reason: domain.MissingStartDate, Message: "缺少出发日期"}
	}
	if record.EndDate == "" {
		return &domain.ValidationError{Reason: domain.MissingEndDate, Message: "缺少返回日期"}
	}
	if endBeforeStart(record.StartDate, record.EndDate) {
		return &domain.ValidationError{Reason: domain.EndBeforeStart, Message: "返回日期不能早于出发日期"}
	}
	if record.Budget <= 0 {
		return &domain.ValidationError{Reason: domain.InvalidBudget, Message: "预算必须为正数"}
	}
	if record.Travelers < 1 {
		return &domain.ValidationError{Reason: domain.InvalidTravelerCount, Message: "出行人数至少为1人"}
	}
	return nil
}

// endBeforeStart compares the two normalized date strings as calendar dates.
// When either string does not parse as a calendar date (extraction is textual
// and lets tokens like "2024-13-1" through), the comparison is skipped and
// the pair is treated as ordered.
func endBeforeStart(start, end string) bool {
	s, err := ParseDate(start)
	if err != nil {
		return false
	}
	e, err := ParseDate(end)
	if err != nil {
		return false
	}
	return e.Before(s)
}

// ParseDate parses a normalized demand date ("2024-5-1" or "2024-05-01")
// into a calendar date. Callers that need real dates (calendar export,
// ordering checks) use this; extraction itself never does.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("demand.ParseDate: %w", err)
	}
	return t, nil
}

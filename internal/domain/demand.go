// Package domain contains the core data types for the travel demand engine.
// This package has zero external dependencies and is imported by every other
// internal package (extract, demand, conversation, repo, service, handler).
package domain

// DemandRecord is the structured travel requirement assembled incrementally
// from the conversation. All fields are optional until the record validates
// complete; the five required fields are destination, start date, end date,
// budget, and travelers.
//
// StartDate and EndDate are normalized date strings ("2024-05-10"). They are
// produced by textual normalization only — no calendar parsing happens at
// extraction time, so a token like "2024-13-01" passes through unguarded.
type DemandRecord struct {
	Destination         string `json:"destination,omitempty"`
	StartDate           string `json:"startDate,omitempty"`
	EndDate             string `json:"endDate,omitempty"`
	Budget              int    `json:"budget,omitempty"`
	Travelers           int    `json:"travelers,omitempty"`
	Preferences         string `json:"preferences,omitempty"`
	SpecialRequirements string `json:"specialRequirements,omitempty"`
}

// PartialDemand is the subset of DemandRecord fields produced by one
// extraction pass over a single utterance. A zero-value field means the
// pattern for that field did not match; merging never interprets a zero
// value as "clear".
type PartialDemand struct {
	Destination         string
	StartDate           string
	EndDate             string
	Budget              int
	Travelers           int
	Preferences         string
	SpecialRequirements string
}

// IsEmpty reports whether the extraction pass matched no field at all.
func (p PartialDemand) IsEmpty() bool {
	return p == PartialDemand{}
}

// FieldID identifies one field of a DemandRecord. Used by the missing-field
// analysis and by user-facing prompts.
type FieldID string

const (
	FieldDestination FieldID = "destination"
	FieldStartDate   FieldID = "startDate"
	FieldEndDate     FieldID = "endDate"
	FieldBudget      FieldID = "budget"
	FieldTravelers   FieldID = "travelers"
)

// RequiredFields is the fixed, ordered set of fields a DemandRecord must hold
// before it is considered complete. The order is significant — it drives the
// phrasing order of missing-field prompts.
var RequiredFields = []FieldID{
	FieldDestination,
	FieldStartDate,
	FieldEndDate,
	FieldBudget,
	FieldTravelers,
}

// fieldNames maps field IDs to the human-readable names used in prompts and
// validation messages. The conversation surface is Chinese, so the names
// are too.
var fieldNames = map[FieldID]string{
	FieldDestination: "目的地",
	FieldStartDate:   "出发日期",
	FieldEndDate:     "返回日期",
	FieldBudget:      "预算",
	FieldTravelers:   "出行人数",
}

// Name returns the human-readable prompt name for the field.
func (f FieldID) Name() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return string(f)
}

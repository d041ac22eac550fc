package model

import "strconv"

// Gender is the normalized gender of a contact.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = ""
)

// RawRecord is one loosely-typed contact record as produced by the
// harvesting process. Field names may appear under Japanese or English
// keys; values may be strings, numbers, or booleans.
type RawRecord map[string]any

// Contact holds the canonical fields extracted from a RawRecord.
// Immutable after normalization.
type Contact struct {
	Name        string `json:"name"`
	Furigana    string `json:"furigana,omitempty"`
	PhoneRaw    string `json:"phone_raw"`
	PhoneDigits string `json:"phone_digits"`
	Gender      Gender `json:"gender"`
	Birth       string `json:"birth,omitempty"`
	Age         *int   `json:"age"`
	// ScriptDeclared carries the harvesting script's own send/skip opinion,
	// nil when the record had none.
	ScriptDeclared *bool `json:"script_declared"`
}

// AgeString returns the age as a display string, empty when unknown.
func (c Contact) AgeString() string {
	if c.Age == nil {
		return ""
	}
	return strconv.Itoa(*c.Age)
}

package extract

import (
	"regexp"
	"strings"
)

// Vehicle holds fields derived from one block of recognized text. All fields
// are independent except Model, which is only attempted after a Make hit.
// Unmatched fields stay empty, never partially populated.
type Vehicle struct {
	RegistrationNumber string `json:"registration_number,omitempty" yaml:"registration_number,omitempty"`
	VINNumber          string `json:"vin_number,omitempty" yaml:"vin_number,omitempty"`
	VehicleMake        string `json:"vehicle_make,omitempty" yaml:"vehicle_make,omitempty"`
	VehicleModel       string `json:"vehicle_model,omitempty" yaml:"vehicle_model,omitempty"`
	OtherText          string `json:"other_text" yaml:"other_text"`
}

// Merge fills v's empty fields from o and returns the result. Fields already
// set on v always win.
func (v Vehicle) Merge(o Vehicle) Vehicle {
	if v.RegistrationNumber == "" {
		v.RegistrationNumber = o.RegistrationNumber
	}
	if v.VINNumber == "" {
		v.VINNumber = o.VINNumber
	}
	if v.VehicleMake == "" {
		v.VehicleMake = o.VehicleMake
	}
	if v.VehicleModel == "" {
		v.VehicleModel = o.VehicleModel
	}
	if v.OtherText == "" {
		v.OtherText = o.OtherText
	}
	return v
}

// registrationRules match number plates in decreasing specificity. Matches
// are uppercased with whitespace collapsed to a single dash.
var registrationRules = []rule{
	// Cape Town metro series, e.g. "CA 123456".
	{re: regexp.MustCompile(`\b(?:CA|CY|CF|CJ|CL|CK)[ -]?\d{3,6}\b`)},
	// Provincial new format, e.g. "ABC 123 GP".
	{re: regexp.MustCompile(`\b[A-Z]{2,3}[ -]?\d{3,4}[ -]?(?:GP|MP|NW|EC|FS|NC|KZN|ZN|WC|L)\b`)},
	// Generic letters-digits-letters plate, e.g. "ABC-123-XY".
	{re: regexp.MustCompile(`\b[A-Z]{2,3}[ -]?\d{3,4}[ -]?[A-Z]{2,3}\b`)},
}

// VINs never contain I, O or Q; exactly 17 contiguous alphanumerics.
var vinRule = []rule{
	{re: regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)},
}

// ExtractVehicle derives vehicle fields from one recognized-text block.
// Empty input yields only the verbatim OtherText.
func ExtractVehicle(text string) Vehicle {
	v := Vehicle{OtherText: text}
	if text == "" {
		return v
	}

	upper := strings.ToUpper(normalize(text))

	if m, ok := firstMatch(registrationRules, upper); ok {
		v.RegistrationNumber = collapseUpper(m)
	}
	if m, ok := firstMatch(vinRule, upper); ok {
		v.VINNumber = m
	}

	v.VehicleMake = scanMakes(upper)
	if v.VehicleMake != "" {
		if rules, ok := modelRules[v.VehicleMake]; ok {
			if m, ok := firstMatch(rules, upper); ok {
				v.VehicleModel = m
			}
		}
	}
	return v
}

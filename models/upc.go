package models

// UPCCandidate is one digit run extracted from free text. NormalizedDigits
// keeps leading zeros; Length is always one of 8, 12, 13 or 14.
type UPCCandidate struct {
	RawText          string `json:"raw_text"`
	NormalizedDigits string `json:"normalized_digits"`
	Length           int    `json:"length"`
	CheckDigit       int    `json:"check_digit"`
	IsValid          bool   `json:"is_valid"`
}

// Package upc implements extraction, validation and check digit repair for
// UPC/EAN/GTIN codes of 8, 12, 13 and 14 digits.
package upc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"
)

var supportedLengths = map[int]bool{
	8:  true,
	12: true,
	13: true,
	14: true,
}

// Digit runs may be broken up with spaces or hyphens, the way codes are
// printed under barcodes ("0-28400-43330-3").
var digitRunPattern = regexp.MustCompile(`[0-9](?:[0-9 -]*[0-9])?`)

// Extract scans free text for digit runs of a supported length and returns
// one candidate per run, in order of appearance. Runs of any other length
// (phone numbers, zip codes) are skipped. Absence of matches is not an
// error; the result is simply empty.
func Extract(text string) []models.UPCCandidate {
	var candidates []models.UPCCandidate

	for _, raw := range digitRunPattern.FindAllString(text, -1) {
		digits := Normalize(raw)
		if !supportedLengths[len(digits)] {
			continue
		}

		candidates = append(candidates, models.UPCCandidate{
			RawText:          strings.TrimSpace(raw),
			NormalizedDigits: digits,
			Length:           len(digits),
			CheckDigit:       int(digits[len(digits)-1] - '0'),
			IsValid:          Validate(digits),
		})
	}

	return candidates
}

// Normalize strips the separators tolerated during extraction. Leading
// zeros are significant and preserved.
func Normalize(raw string) string {
	replacer := strings.NewReplacer(" ", "", "-", "")
	return replacer.Replace(raw)
}

// Validate applies the standard GTIN weighted modulo-10 checksum: moving
// left from the rightmost payload digit, digits alternate multipliers 3 and
// 1, and the code is valid when (10 - sum mod 10) mod 10 equals the final
// digit. Non-digit input or an unsupported length is invalid, never an
// error.
func Validate(digits string) bool {
	if !supportedLengths[len(digits)] {
		return false
	}
	if !allDigits(digits) {
		return false
	}

	payload := digits[:len(digits)-1]
	expected := (10 - weightedSum(payload)%10) % 10
	return expected == int(digits[len(digits)-1]-'0')
}

// CheckDigit computes the digit that makes Validate accept payload+digit.
// The payload must be one digit short of a supported length.
func CheckDigit(payload string) (int, error) {
	if !supportedLengths[len(payload)+1] {
		return 0, fmt.Errorf("unsupported payload length %d: expected 7, 11, 12 or 13 digits", len(payload))
	}
	if !allDigits(payload) {
		return 0, fmt.Errorf("payload must contain only digits, got %q", payload)
	}

	return (10 - weightedSum(payload)%10) % 10, nil
}

// Repair recomputes the final digit of a full code, or appends the check
// digit to a bare payload, returning the corrected code. Input of a
// supported full length is always treated as a full code, so a 12-digit
// string is a UPC-A to fix rather than an EAN-13 payload to complete.
func Repair(digits string) (string, error) {
	if supportedLengths[len(digits)] {
		check, err := CheckDigit(digits[:len(digits)-1])
		if err != nil {
			return "", err
		}
		return digits[:len(digits)-1] + string(rune('0'+check)), nil
	}

	check, err := CheckDigit(digits)
	if err != nil {
		return "", err
	}
	return digits + string(rune('0'+check)), nil
}

func weightedSum(payload string) int {
	sum := 0
	weight := 3
	for i := len(payload) - 1; i >= 0; i-- {
		sum += int(payload[i]-'0') * weight
		if weight == 3 {
			weight = 1
		} else {
			weight = 3
		}
	}
	return sum
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

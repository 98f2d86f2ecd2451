// Package match compares a user-supplied product description against the
// product data returned by a lookup, so the agent can flag when someone asks
// about "chocolate bars" but the UPC resolves to potato chips.
package match

import (
	"fmt"
	"strings"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const (
	VerdictMatch    = "match"
	VerdictPartial  = "partial"
	VerdictMismatch = "mismatch"
	VerdictUnknown  = "unknown"
)

type Result struct {
	Verdict       string   `json:"verdict"`
	MatchedFields []string `json:"matched_fields,omitempty"`
	Summary       string   `json:"summary"`
}

// CompareDescription checks the user's description against the product's
// name, brand, category and ingredients. All terms matching means a full
// match, some terms a partial one.
func CompareDescription(description string, product *models.Product) Result {
	terms := splitTerms(description)
	if len(terms) == 0 || product == nil {
		return Result{
			Verdict: VerdictUnknown,
			Summary: "no description was provided to compare against the product data",
		}
	}

	fields := []struct {
		name  string
		value string
	}{
		{"name", product.Description},
		{"brand", product.Brand},
		{"category", product.Category},
		{"ingredients", product.Ingredients},
	}

	matchedTerms := 0
	var matchedFields []string
	seenField := map[string]bool{}

	for _, term := range terms {
		for _, field := range fields {
			if field.value == "" {
				continue
			}
			if termMatchesField(term, field.value) {
				matchedTerms++
				if !seenField[field.name] {
					seenField[field.name] = true
					matchedFields = append(matchedFields, field.name)
				}
				break
			}
		}
	}

	switch {
	case matchedTerms == len(terms):
		return Result{
			Verdict:       VerdictMatch,
			MatchedFields: matchedFields,
			Summary:       fmt.Sprintf("user description %q matches the product data", description),
		}
	case matchedTerms > 0:
		return Result{
			Verdict:       VerdictPartial,
			MatchedFields: matchedFields,
			Summary: fmt.Sprintf("user description %q partially matches; found related terms in [%s]",
				description, strings.Join(matchedFields, ", ")),
		}
	default:
		return Result{
			Verdict: VerdictMismatch,
			Summary: fmt.Sprintf("user described %q but the product is actually %q; confirm this is the intended product",
				description, product.Description),
		}
	}
}

func termMatchesField(term, value string) bool {
	if fuzzy.MatchFold(term, value) {
		return true
	}

	words := strings.Fields(strings.ToLower(value))
	cleanWords := make([]string, 0, len(words))
	for _, word := range words {
		cleanWord := strings.Trim(word, ".,!?;:()[]{}\"'")
		if len(cleanWord) > 0 {
			cleanWords = append(cleanWords, cleanWord)
		}
	}

	return len(fuzzy.Find(term, cleanWords)) > 0
}

func splitTerms(description string) []string {
	var terms []string
	for _, term := range strings.Fields(strings.ToLower(description)) {
		term = strings.Trim(term, ".,!?;:()[]{}\"'")
		// Skip filler words so "a bag of chips" compares on "bag" and "chips".
		if len(term) < 3 || stopwords[term] {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

var stopwords = map[string]bool{
	"the":  true,
	"and":  true,
	"for":  true,
	"with": true,
	"some": true,
	"this": true,
	"that": true,
}

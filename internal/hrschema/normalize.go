package hrschema

import (
	"regexp"
	"strings"
)

var (
	nonAlnumRe    = regexp.MustCompile(`[^A-Za-z0-9]`)
	letterDigitRe = regexp.MustCompile(`([A-Za-z])([0-9])`)
	digitLetterRe = regexp.MustCompile(`([0-9])([A-Za-z])`)
	lowerUpperRe  = regexp.MustCompile(`([a-z])([A-Z])`)
	multiUnderRe  = regexp.MustCompile(`_+`)
)

// NormalizeColumn canonicalizes a raw column name to snake_case: symbols
// become underscores, camelCase and letter/digit boundaries are split, and
// the result is lowercased.
//
//	NormalizeColumn(" ID ")               -> "id"
//	NormalizeColumn("NumCompaniesWorked") -> "num_companies_worked"
//	NormalizeColumn("Over18")             -> "over_18"
//	NormalizeColumn("Monthly$Income")     -> "monthly_income"
func NormalizeColumn(name string) string {
	s := strings.TrimSpace(name)
	s = nonAlnumRe.ReplaceAllString(s, "_")
	s = letterDigitRe.ReplaceAllString(s, "${1}_${2}")
	s = digitLetterRe.ReplaceAllString(s, "${1}_${2}")
	s = lowerUpperRe.ReplaceAllString(s, "${1}_${2}")
	s = multiUnderRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	return strings.ToLower(s)
}

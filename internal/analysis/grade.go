package analysis

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultRiskKeyword      = "риск"
	DefaultPotentialKeyword = "потенциал"

	gradeMin       = 0
	gradeMax       = 100
	keywordPenalty = 20
	keywordBonus   = 20
)

// Grader maps a narrative to an investment grade in [0,100]. Baseline is
// narrative length in runes divided by 10; the risk keyword subtracts 20 and
// the potential keyword adds 20, both matched case-insensitively.
type Grader struct {
	RiskKeyword      string
	PotentialKeyword string
}

func DefaultGrader() Grader {
	return Grader{RiskKeyword: DefaultRiskKeyword, PotentialKeyword: DefaultPotentialKeyword}
}

func (g Grader) Grade(narrative string) int {
	grade := utf8.RuneCountInString(narrative) / 10
	lower := strings.ToLower(narrative)
	if g.RiskKeyword != "" && strings.Contains(lower, strings.ToLower(g.RiskKeyword)) {
		grade -= keywordPenalty
	}
	if g.PotentialKeyword != "" && strings.Contains(lower, strings.ToLower(g.PotentialKeyword)) {
		grade += keywordBonus
	}
	if grade < gradeMin {
		return gradeMin
	}
	if grade > gradeMax {
		return gradeMax
	}
	return grade
}

// Package scorer maps a complete lead qualification to a numeric score and a
// letter grade.
package scorer

import "github.com/sells-group/voice-agent/internal/model"

// Grade thresholds on the 0-100 scale.
const (
	GradeAThreshold = 80
	GradeBThreshold = 60
)

// Components holds the per-attribute sub-scores that add up to the total.
type Components struct {
	Interest    int `json:"interest"`
	Budget      int `json:"budget"`
	CompanySize int `json:"companySize"`
	Timeline    int `json:"timeline"`
	Authority   int `json:"authority"`
}

// Total sums the sub-scores.
func (c Components) Total() int {
	return c.Interest + c.Budget + c.CompanySize + c.Timeline + c.Authority
}

// Score computes the lead score for q. It is a pure function of q.
func Score(q model.Qualification) model.LeadScore {
	numeric := Breakdown(q).Total()
	return model.LeadScore{Numeric: numeric, Grade: GradeFor(numeric)}
}

// Breakdown returns the individual sub-scores for q.
func Breakdown(q model.Qualification) Components {
	return Components{
		Interest:    interestScore(q.InterestLevel),
		Budget:      budgetScore(q.BudgetMonthlyEUR),
		CompanySize: companySizeScore(q.CompanySizeEmployees),
		Timeline:    timelineScore(q.TimelineWeeks),
		Authority:   authorityScore(q.HasAuthority),
	}
}

// GradeFor maps a numeric score to its grade.
func GradeFor(numeric int) model.Grade {
	switch {
	case numeric >= GradeAThreshold:
		return model.GradeA
	case numeric >= GradeBThreshold:
		return model.GradeB
	default:
		return model.GradeC
	}
}

func interestScore(level model.InterestLevel) int {
	switch level {
	case model.InterestHigh:
		return 25
	case model.InterestMedium:
		return 15
	default:
		return 5
	}
}

func budgetScore(eur int) int {
	switch {
	case eur >= 2000:
		return 25
	case eur >= 1000:
		return 15
	default:
		return 5
	}
}

func companySizeScore(employees int) int {
	switch {
	case employees >= 200:
		return 15
	case employees >= 50:
		return 10
	default:
		return 5
	}
}

func timelineScore(weeks int) int {
	switch {
	case weeks <= 4:
		return 20
	case weeks <= 8:
		return 12
	default:
		return 6
	}
}

func authorityScore(has bool) int {
	if has {
		return 15
	}
	return 7
}

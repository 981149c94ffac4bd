package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/voice-agent/internal/model"
)

var (
	lowInterestRE    = regexp.MustCompile(`\b(niedrig|spaeter|spater|gering|nicht dringend|unwichtig)\b`)
	highInterestRE   = regexp.MustCompile(`\b(hoch|dringend|sofort|kritisch|sehr wichtig|sehr hoch|prio hoch|prioritaet hoch|prioritat hoch|urgent|asap)\b`)
	mediumInterestRE = regexp.MustCompile(`\b(mittel|moderat|ok|passt|normal)\b`)

	weeksRE  = regexp.MustCompile(`(\d{1,2})\s*(woche|wochen|week|weeks)`)
	monthsRE = regexp.MustCompile(`(\d{1,2})\s*(monat|monate|months?)`)

	authorityNegativeRE = regexp.MustCompile(`\b(ich entscheide nicht|keine entscheidung|muss abstimmen|nicht entscheidungsbefugt)\b`)
	authorityPositiveRE = regexp.MustCompile(`\b(ich entscheide|entscheidungsbefugt|entscheidungstraeger|entscheidungstrager|bin entscheider|zeichnungsberechtigt)\b`)
	authorityYesRE      = regexp.MustCompile(`\b(ja[,.\s]+(bin ich|ich bin|klar|genau|absolut|sicher))\b`)

	useCaseLabelRE   = regexp.MustCompile(`(?i)(?:use case|anwendungsfall|wir wollen|ziel ist)\s*[:\-]?\s*(.+)$`)
	painPointLabelRE = regexp.MustCompile(`(?i)(?:pain point|problem|herausforderung|schmerzpunkt)\s*[:\-]?\s*(.+)$`)
)

// Keyword lists for the "number near keyword" search, in priority order.
var (
	budgetKeywords      = []string{"budget", "monat", "pro monat", "euro", "eur"}
	companySizeKeywords = []string{"mitarbeiter", "personen", "team", "vertrieb", "support"}
)

// numberNearKeyword holds the two compiled searches for one keyword: a
// number anywhere after it, or a number at most 24 characters before it.
type numberNearKeyword struct {
	after  *regexp.Regexp
	before *regexp.Regexp
}

func compileNearKeywords(keywords []string) []numberNearKeyword {
	out := make([]numberNearKeyword, len(keywords))
	for i, kw := range keywords {
		q := regexp.QuoteMeta(kw)
		out[i] = numberNearKeyword{
			after:  regexp.MustCompile(q + `\D*(\d{1,6})`),
			before: regexp.MustCompile(`(\d{1,6})\D{0,24}` + q),
		}
	}
	return out
}

var (
	budgetSearch      = compileNearKeywords(budgetKeywords)
	companySizeSearch = compileNearKeywords(companySizeKeywords)
)

// findNumberNearKeywords returns the first number found next to a keyword.
// Keywords are tried in order; for each, a following number wins over a
// preceding one.
func findNumberNearKeywords(text string, searches []numberNearKeyword) (int, bool) {
	for _, s := range searches {
		if m := s.after.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
		if m := s.before.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// Heuristic infers fields from text by keyword rules. A field is only
// inferred when existing does not already hold it, so the result never
// overrides a captured value. It is a pure function of its inputs.
func Heuristic(text string, existing model.Draft) model.Draft {
	normalized := Normalize(text)
	var patch model.Draft

	if !existing.Has(model.FieldInterestLevel) {
		switch {
		case lowInterestRE.MatchString(normalized):
			patch.InterestLevel = model.Ptr(model.InterestLow)
		case highInterestRE.MatchString(normalized):
			patch.InterestLevel = model.Ptr(model.InterestHigh)
		case mediumInterestRE.MatchString(normalized):
			patch.InterestLevel = model.Ptr(model.InterestMedium)
		}
	}

	if !existing.Has(model.FieldBudgetMonthlyEUR) {
		if n, ok := findNumberNearKeywords(normalized, budgetSearch); ok && n >= 0 {
			patch.BudgetMonthlyEUR = model.Ptr(n)
		}
	}

	if !existing.Has(model.FieldCompanySizeEmployees) {
		if n, ok := findNumberNearKeywords(normalized, companySizeSearch); ok && n > 0 {
			patch.CompanySizeEmployees = model.Ptr(n)
		}
	}

	if !existing.Has(model.FieldTimelineWeeks) {
		if n, ok := timelineWeeks(normalized); ok && n > 0 {
			patch.TimelineWeeks = model.Ptr(n)
		}
	}

	if !existing.Has(model.FieldHasAuthority) {
		// "ich entscheide nicht" also matches the positive pattern.
		switch {
		case authorityNegativeRE.MatchString(normalized):
			patch.HasAuthority = model.Ptr(false)
		case authorityPositiveRE.MatchString(normalized), authorityYesRE.MatchString(normalized):
			patch.HasAuthority = model.Ptr(true)
		}
	}

	if !existing.Has(model.FieldUseCase) {
		if v, ok := labeledValue(useCaseLabelRE, text); ok {
			patch.UseCase = model.Ptr(v)
		}
	}

	if !existing.Has(model.FieldPainPoint) {
		if v, ok := labeledValue(painPointLabelRE, text); ok {
			patch.PainPoint = model.Ptr(v)
		}
	}

	return patch
}

func labeledValue(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

func timelineWeeks(text string) (int, bool) {
	if m := weeksRE.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := monthsRE.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 4, true
	}
	return 0, false
}

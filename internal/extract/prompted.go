package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/voice-agent/internal/model"
)

// DefaultMinFreeTextLen is the shortest answer accepted as a direct reply to
// the use case or pain point question.
const DefaultMinFreeTextLen = 10

var (
	promptedHighRE   = regexp.MustCompile(`\b(hoch|dringend|kritisch|sofort|high)\b`)
	promptedMediumRE = regexp.MustCompile(`\b(mittel|moderat|normal|medium)\b`)
	promptedLowRE    = regexp.MustCompile(`\b(niedrig|gering|spaeter|spater|low)\b`)

	promptedNoRE  = regexp.MustCompile(`\b(nein|no|nicht|keine)\b`)
	promptedYesRE = regexp.MustCompile(`\b(ja|yes|yep|klar|genau|absolut|sicher)\b`)

	promptedMonthRE = regexp.MustCompile(`\b(monat|monate|monaten|month|months)\b`)

	firstNumberRE = regexp.MustCompile(`\d{1,6}`)
)

// Prompted reads text as a direct answer to the question about field. It
// accepts DTMF-style digits as well as natural language and returns an empty
// draft when the answer does not fit the field. Free-text answers shorter than
// minFreeTextLen characters are rejected.
func Prompted(field model.Field, text string, minFreeTextLen int) model.Draft {
	normalized := Normalize(text)
	var patch model.Draft

	switch field {
	case model.FieldInterestLevel:
		switch {
		case normalized == "3" || promptedHighRE.MatchString(normalized):
			patch.InterestLevel = model.Ptr(model.InterestHigh)
		case normalized == "2" || promptedMediumRE.MatchString(normalized):
			patch.InterestLevel = model.Ptr(model.InterestMedium)
		case normalized == "1" || promptedLowRE.MatchString(normalized):
			patch.InterestLevel = model.Ptr(model.InterestLow)
		}

	case model.FieldBudgetMonthlyEUR:
		if n, ok := firstPositiveNumber(normalized); ok {
			patch.BudgetMonthlyEUR = model.Ptr(n)
		}

	case model.FieldCompanySizeEmployees:
		if n, ok := firstPositiveNumber(normalized); ok {
			patch.CompanySizeEmployees = model.Ptr(n)
		}

	case model.FieldTimelineWeeks:
		if n, ok := firstPositiveNumber(normalized); ok {
			if promptedMonthRE.MatchString(normalized) {
				n *= 4
			}
			patch.TimelineWeeks = model.Ptr(n)
		}

	case model.FieldHasAuthority:
		switch {
		case normalized == "2" || promptedNoRE.MatchString(normalized):
			patch.HasAuthority = model.Ptr(false)
		case normalized == "1" || promptedYesRE.MatchString(normalized):
			patch.HasAuthority = model.Ptr(true)
		}

	case model.FieldUseCase:
		if v, ok := freeText(text, minFreeTextLen); ok {
			patch.UseCase = model.Ptr(v)
		}

	case model.FieldPainPoint:
		if v, ok := freeText(text, minFreeTextLen); ok {
			patch.PainPoint = model.Ptr(v)
		}
	}

	return patch
}

func firstPositiveNumber(text string) (int, bool) {
	m := firstNumberRE.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func freeText(text string, minLen int) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if minLen <= 0 {
		minLen = DefaultMinFreeTextLen
	}
	if utf8.RuneCountInString(trimmed) < minLen {
		return "", false
	}
	return trimmed, true
}

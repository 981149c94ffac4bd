package extract

import (
	"math"
	"strings"

	"github.com/sells-group/voice-agent/internal/model"
)

// Sanitize converts a decoded JSON object into a draft, keeping only fields
// that satisfy the data model's constraints. Invalid fields are dropped one by
// one; they never invalidate the rest of the object.
func Sanitize(raw map[string]any) model.Draft {
	var out model.Draft

	if s, ok := raw[string(model.FieldInterestLevel)].(string); ok {
		level := model.InterestLevel(s)
		if level.Valid() {
			out.InterestLevel = model.Ptr(level)
		}
	}

	if n, ok := roundedNumber(raw[string(model.FieldBudgetMonthlyEUR)]); ok && n >= 0 {
		out.BudgetMonthlyEUR = model.Ptr(n)
	}
	if n, ok := roundedNumber(raw[string(model.FieldCompanySizeEmployees)]); ok && n > 0 {
		out.CompanySizeEmployees = model.Ptr(n)
	}
	if n, ok := roundedNumber(raw[string(model.FieldTimelineWeeks)]); ok && n > 0 {
		out.TimelineWeeks = model.Ptr(n)
	}

	if b, ok := raw[string(model.FieldHasAuthority)].(bool); ok {
		out.HasAuthority = model.Ptr(b)
	}

	if s, ok := trimmedString(raw[string(model.FieldUseCase)]); ok {
		out.UseCase = model.Ptr(s)
	}
	if s, ok := trimmedString(raw[string(model.FieldPainPoint)]); ok {
		out.PainPoint = model.Ptr(s)
	}

	return out
}

// roundedNumber accepts finite JSON numbers only. Strings are rejected even
// if they look numeric.
func roundedNumber(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}

func trimmedString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

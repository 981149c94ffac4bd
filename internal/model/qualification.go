package model

import "strings"

// Field names a qualification attribute collected during a call.
type Field string

const (
	FieldInterestLevel        Field = "interestLevel"
	FieldBudgetMonthlyEUR     Field = "budgetMonthlyEur"
	FieldCompanySizeEmployees Field = "companySizeEmployees"
	FieldTimelineWeeks        Field = "timelineWeeks"
	FieldHasAuthority         Field = "hasAuthority"
	FieldUseCase              Field = "useCase"
	FieldPainPoint            Field = "painPoint"
)

// FieldOrder is the fixed order in which qualification fields are asked.
var FieldOrder = []Field{
	FieldInterestLevel,
	FieldBudgetMonthlyEUR,
	FieldCompanySizeEmployees,
	FieldTimelineWeeks,
	FieldHasAuthority,
	FieldUseCase,
	FieldPainPoint,
}

// Valid reports whether f is one of the seven known fields.
func (f Field) Valid() bool {
	for _, known := range FieldOrder {
		if f == known {
			return true
		}
	}
	return false
}

// InterestLevel is the lead's stated priority.
type InterestLevel string

const (
	InterestLow    InterestLevel = "low"
	InterestMedium InterestLevel = "medium"
	InterestHigh   InterestLevel = "high"
)

// Valid reports whether l is low, medium or high.
func (l InterestLevel) Valid() bool {
	switch l {
	case InterestLow, InterestMedium, InterestHigh:
		return true
	default:
		return false
	}
}

// Draft is a partially filled qualification. A nil pointer means the field
// has not been captured yet.
type Draft struct {
	InterestLevel        *InterestLevel `json:"interestLevel,omitempty"`
	BudgetMonthlyEUR     *int           `json:"budgetMonthlyEur,omitempty"`
	CompanySizeEmployees *int           `json:"companySizeEmployees,omitempty"`
	TimelineWeeks        *int           `json:"timelineWeeks,omitempty"`
	HasAuthority         *bool          `json:"hasAuthority,omitempty"`
	UseCase              *string        `json:"useCase,omitempty"`
	PainPoint            *string        `json:"painPoint,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Has reports whether field f is present and non-empty.
func (d Draft) Has(f Field) bool {
	switch f {
	case FieldInterestLevel:
		return d.InterestLevel != nil && *d.InterestLevel != ""
	case FieldBudgetMonthlyEUR:
		return d.BudgetMonthlyEUR != nil
	case FieldCompanySizeEmployees:
		return d.CompanySizeEmployees != nil
	case FieldTimelineWeeks:
		return d.TimelineWeeks != nil
	case FieldHasAuthority:
		return d.HasAuthority != nil
	case FieldUseCase:
		return d.UseCase != nil && strings.TrimSpace(*d.UseCase) != ""
	case FieldPainPoint:
		return d.PainPoint != nil && strings.TrimSpace(*d.PainPoint) != ""
	default:
		return false
	}
}

// Empty reports whether no field is set at all.
func (d Draft) Empty() bool {
	return d == Draft{}
}

// Fields returns the fields set in d, in FieldOrder.
func (d Draft) Fields() []Field {
	var out []Field
	for _, f := range FieldOrder {
		if d.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Merge returns a copy of d with every field set in patch overriding the
// corresponding field of d. Fields absent from patch are left untouched, so a
// merge never clears a captured value.
func (d Draft) Merge(patch Draft) Draft {
	out := d
	if patch.InterestLevel != nil {
		out.InterestLevel = Ptr(*patch.InterestLevel)
	}
	if patch.BudgetMonthlyEUR != nil {
		out.BudgetMonthlyEUR = Ptr(*patch.BudgetMonthlyEUR)
	}
	if patch.CompanySizeEmployees != nil {
		out.CompanySizeEmployees = Ptr(*patch.CompanySizeEmployees)
	}
	if patch.TimelineWeeks != nil {
		out.TimelineWeeks = Ptr(*patch.TimelineWeeks)
	}
	if patch.HasAuthority != nil {
		out.HasAuthority = Ptr(*patch.HasAuthority)
	}
	if patch.UseCase != nil {
		out.UseCase = Ptr(*patch.UseCase)
	}
	if patch.PainPoint != nil {
		out.PainPoint = Ptr(*patch.PainPoint)
	}
	return out
}

// Without returns a copy of d with field f cleared.
func (d Draft) Without(f Field) Draft {
	out := d
	switch f {
	case FieldInterestLevel:
		out.InterestLevel = nil
	case FieldBudgetMonthlyEUR:
		out.BudgetMonthlyEUR = nil
	case FieldCompanySizeEmployees:
		out.CompanySizeEmployees = nil
	case FieldTimelineWeeks:
		out.TimelineWeeks = nil
	case FieldHasAuthority:
		out.HasAuthority = nil
	case FieldUseCase:
		out.UseCase = nil
	case FieldPainPoint:
		out.PainPoint = nil
	}
	return out
}

// MissingFields returns the fields not yet captured, in FieldOrder. The result
// is empty exactly when the draft is complete.
func MissingFields(d Draft) []Field {
	missing := make([]Field, 0, len(FieldOrder))
	for _, f := range FieldOrder {
		if !d.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Qualification is a complete set of qualification attributes.
type Qualification struct {
	InterestLevel        InterestLevel `json:"interestLevel"`
	BudgetMonthlyEUR     int           `json:"budgetMonthlyEur"`
	CompanySizeEmployees int           `json:"companySizeEmployees"`
	TimelineWeeks        int           `json:"timelineWeeks"`
	HasAuthority         bool          `json:"hasAuthority"`
	UseCase              string        `json:"useCase"`
	PainPoint            string        `json:"painPoint"`
}

// Complete converts d into a Qualification. The boolean is false while any
// field is missing.
func (d Draft) Complete() (Qualification, bool) {
	if len(MissingFields(d)) > 0 {
		return Qualification{}, false
	}
	return Qualification{
		InterestLevel:        *d.InterestLevel,
		BudgetMonthlyEUR:     *d.BudgetMonthlyEUR,
		CompanySizeEmployees: *d.CompanySizeEmployees,
		TimelineWeeks:        *d.TimelineWeeks,
		HasAuthority:         *d.HasAuthority,
		UseCase:              *d.UseCase,
		PainPoint:            *d.PainPoint,
	}, true
}

// Draft returns q as a fully populated draft.
func (q Qualification) Draft() Draft {
	return Draft{
		InterestLevel:        Ptr(q.InterestLevel),
		BudgetMonthlyEUR:     Ptr(q.BudgetMonthlyEUR),
		CompanySizeEmployees: Ptr(q.CompanySizeEmployees),
		TimelineWeeks:        Ptr(q.TimelineWeeks),
		HasAuthority:         Ptr(q.HasAuthority),
		UseCase:              Ptr(q.UseCase),
		PainPoint:            Ptr(q.PainPoint),
	}
}

// Validate checks the domain constraints of a complete qualification.
func (q Qualification) Validate() []string {
	var problems []string
	if !q.InterestLevel.Valid() {
		problems = append(problems, "interestLevel must be low, medium or high")
	}
	if q.BudgetMonthlyEUR < 0 {
		problems = append(problems, "budgetMonthlyEur must be >= 0")
	}
	if q.CompanySizeEmployees <= 0 {
		problems = append(problems, "companySizeEmployees must be > 0")
	}
	if q.TimelineWeeks <= 0 {
		problems = append(problems, "timelineWeeks must be > 0")
	}
	if strings.TrimSpace(q.UseCase) == "" {
		problems = append(problems, "useCase is required")
	}
	if strings.TrimSpace(q.PainPoint) == "" {
		problems = append(problems, "painPoint is required")
	}
	return problems
}

// LeadProfile carries optional contact details of the lead.
type LeadProfile struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Merge overwrites each key of p with the non-empty keys of other.
func (p LeadProfile) Merge(other LeadProfile) LeadProfile {
	if other.Name != "" {
		p.Name = other.Name
	}
	if other.Email != "" {
		p.Email = other.Email
	}
	return p
}

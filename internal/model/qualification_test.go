package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeDraft() Draft {
	return Draft{
		InterestLevel:        Ptr(InterestHigh),
		BudgetMonthlyEUR:     Ptr(2200),
		CompanySizeEmployees: Ptr(150),
		TimelineWeeks:        Ptr(4),
		HasAuthority:         Ptr(true),
		UseCase:              Ptr("Inbound Lead Qualifizierung"),
		PainPoint:            Ptr("Zu viele manuelle Erstgespraeche"),
	}
}

func TestMissingFields_EmptyDraft(t *testing.T) {
	t.Parallel()
	assert.Equal(t, FieldOrder, MissingFields(Draft{}))
}

func TestMissingFields_CompleteDraft(t *testing.T) {
	t.Parallel()

	d := completeDraft()
	assert.Empty(t, MissingFields(d))

	q, ok := d.Complete()
	require.True(t, ok)
	assert.Contains(t, q.UseCase, "Inbound")
	assert.Equal(t, 2200, q.BudgetMonthlyEUR)
}

func TestMissingFields_SingleFieldRemoved(t *testing.T) {
	t.Parallel()

	for _, f := range FieldOrder {
		t.Run(string(f), func(t *testing.T) {
			t.Parallel()
			d := completeDraft().Without(f)
			assert.Equal(t, []Field{f}, MissingFields(d))
			_, ok := d.Complete()
			assert.False(t, ok)
		})
	}
}

func TestMissingFields_BlankStringsCountAsMissing(t *testing.T) {
	t.Parallel()

	d := completeDraft()
	d.UseCase = Ptr("   ")
	d.PainPoint = Ptr("")
	assert.Equal(t, []Field{FieldUseCase, FieldPainPoint}, MissingFields(d))
}

func TestMissingFields_FalseAndZeroArePresent(t *testing.T) {
	t.Parallel()

	d := completeDraft()
	d.HasAuthority = Ptr(false)
	d.BudgetMonthlyEUR = Ptr(0)
	assert.Empty(t, MissingFields(d))
}

func TestDraft_Merge(t *testing.T) {
	t.Parallel()

	base := Draft{InterestLevel: Ptr(InterestLow), BudgetMonthlyEUR: Ptr(500)}
	patch := Draft{InterestLevel: Ptr(InterestHigh), UseCase: Ptr("Support")}

	merged := base.Merge(patch)
	assert.Equal(t, InterestHigh, *merged.InterestLevel)
	assert.Equal(t, 500, *merged.BudgetMonthlyEUR)
	assert.Equal(t, "Support", *merged.UseCase)

	// Base is not mutated.
	assert.Equal(t, InterestLow, *base.InterestLevel)
	assert.Nil(t, base.UseCase)
}

func TestDraft_MergeNeverClears(t *testing.T) {
	t.Parallel()

	base := completeDraft()
	merged := base.Merge(Draft{})
	assert.Equal(t, base.Fields(), merged.Fields())
}

func TestQualification_DraftRoundTrip(t *testing.T) {
	t.Parallel()

	q, ok := completeDraft().Complete()
	require.True(t, ok)
	back, ok := q.Draft().Complete()
	require.True(t, ok)
	assert.Equal(t, q, back)
}

func TestQualification_Validate(t *testing.T) {
	t.Parallel()

	q, _ := completeDraft().Complete()
	assert.Empty(t, q.Validate())

	q.InterestLevel = "urgent"
	q.CompanySizeEmployees = 0
	q.UseCase = " "
	assert.Len(t, q.Validate(), 3)
}

func TestField_Valid(t *testing.T) {
	t.Parallel()
	assert.True(t, FieldTimelineWeeks.Valid())
	assert.False(t, Field("revenue").Valid())
}

func TestLeadProfile_Merge(t *testing.T) {
	t.Parallel()

	p := LeadProfile{Name: "Max", Email: "max@example.com"}
	merged := p.Merge(LeadProfile{Name: "Maxi"})
	assert.Equal(t, "Maxi", merged.Name)
	assert.Equal(t, "max@example.com", merged.Email)
}

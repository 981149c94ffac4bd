package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/voice-agent/internal/model"
)

func writeFlow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_RepositoryFlow(t *testing.T) {
	t.Parallel()

	f, err := Load(filepath.Join("..", "..", "config", "conversation-flow.yaml"), "PipelinePilot")
	require.NoError(t, err)

	assert.Contains(t, f.Opening[0], "PipelinePilot")
	assert.Contains(t, f.Question(model.FieldBudgetMonthlyEUR), "Budget")
	assert.Contains(t, f.Question(model.FieldUseCase), "Use Case")
	assert.NotEmpty(t, f.Objections.Budget)
	assert.NotEmpty(t, f.Objections.Trust)
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	t.Parallel()

	f, err := Load(filepath.Join(t.TempDir(), "missing-flow.yaml"), "PipelinePilot")
	require.NoError(t, err)

	assert.Equal(t, "Danke fuer deinen Anruf bei PipelinePilot.", f.Opening[0])
	assert.Greater(t, len(f.Question(model.FieldInterestLevel)), 5)
	assert.Empty(t, f.ObjectionHint("zu teuer"))
}

func TestLoad_InvalidYAMLFallsBack(t *testing.T) {
	t.Parallel()

	path := writeFlow(t, "opening: [unterminated\n")
	f, err := Load(path, "Acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow: parse config")
	require.NotNil(t, f)
	assert.Contains(t, f.OpeningText(), "Acme")
}

func TestLoad_PartialOverrides(t *testing.T) {
	t.Parallel()

	path := writeFlow(t, `
opening:
  - "Hallo von {{product_name}}!"
qualification_criteria:
  - key: budgetMonthlyEur
    question: "Budget pro Monat?"
  - key: unknownField
    question: "Ignoriert"
  - key: useCase
    question: ""
`)
	f, err := Load(path, "Acme")
	require.NoError(t, err)

	assert.Equal(t, []string{"Hallo von Acme!"}, f.Opening)
	assert.Equal(t, "Budget pro Monat?", f.Question(model.FieldBudgetMonthlyEUR))
	assert.Equal(t, defaultQuestions[model.FieldUseCase], f.Question(model.FieldUseCase))
	assert.NotContains(t, f.Questions, model.Field("unknownField"))
}

func TestDefault_IsolatedCopies(t *testing.T) {
	t.Parallel()

	a := Default("A")
	a.Questions[model.FieldPainPoint] = "changed"
	b := Default("B")
	assert.Equal(t, defaultQuestions[model.FieldPainPoint], b.Question(model.FieldPainPoint))
}

func TestObjectionHint(t *testing.T) {
	t.Parallel()

	f := Default("Acme")
	f.Objections = Objections{
		Budget: []string{"budget-hint", "second"},
		Trust:  []string{"trust-hint"},
	}

	tests := []struct {
		name      string
		utterance string
		want      string
	}{
		{"budget", "Das ist mir zu teuer.", "budget-hint"},
		{"trust", "Ich bin unsicher.", "trust-hint"},
		{"budget before trust", "Risiko und Kosten sind hoch.", "budget-hint"},
		{"case insensitive", "KOSTEN?", "budget-hint"},
		{"none", "Klingt gut.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, f.ObjectionHint(tt.utterance))
		})
	}
}

func TestObjectionHint_BudgetWithoutHintDoesNotFallThrough(t *testing.T) {
	t.Parallel()

	f := Default("Acme")
	f.Objections.Trust = []string{"trust-hint"}
	assert.Empty(t, f.ObjectionHint("Budget und Vertrauen"))
}

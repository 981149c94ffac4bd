// Package flow holds the conversation flow definition: the opening lines, the
// question asked for each qualification field and objection-handling hints.
package flow

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/voice-agent/internal/model"
)

const productPlaceholder = "{{product_name}}"

var defaultQuestions = map[model.Field]string{
	model.FieldInterestLevel:        "Wie hoch ist die Prioritaet: niedrig, mittel oder hoch?",
	model.FieldBudgetMonthlyEUR:     "Welches monatliche Budget in Euro ist geplant?",
	model.FieldCompanySizeEmployees: "Wie viele Mitarbeitende sind im betroffenen Team?",
	model.FieldTimelineWeeks:        "In wie vielen Wochen wollt ihr live gehen?",
	model.FieldHasAuthority:         "Bist du entscheidungsbefugt fuer dieses Projekt?",
	model.FieldUseCase:              "Was ist euer konkreter Use Case?",
	model.FieldPainPoint:            "Was ist der wichtigste Pain Point heute?",
}

var defaultOpening = []string{
	"Danke fuer deinen Anruf bei " + productPlaceholder + ".",
	"Ich stelle dir kurz ein paar Fragen, damit wir den passenden Demo-Slot finden.",
}

var (
	budgetObjectionRE = regexp.MustCompile(`(?i)budget|teuer|kosten`)
	trustObjectionRE  = regexp.MustCompile(`(?i)vertrauen|risiko|unsicher`)
)

// Objections lists the hints available per objection category.
type Objections struct {
	Budget []string `yaml:"budget"`
	Trust  []string `yaml:"trust"`
}

// Flow is a loaded conversation flow.
type Flow struct {
	Opening    []string
	Questions  map[model.Field]string
	Objections Objections
}

type criterion struct {
	Key      string `yaml:"key"`
	Question string `yaml:"question"`
}

type fileFormat struct {
	Opening    []string    `yaml:"opening"`
	Criteria   []criterion `yaml:"qualification_criteria"`
	Objections *Objections `yaml:"objection_handling"`
}

// Default returns the built-in German flow for productName.
func Default(productName string) *Flow {
	questions := make(map[model.Field]string, len(defaultQuestions))
	for f, q := range defaultQuestions {
		questions[f] = q
	}
	return &Flow{
		Opening:   substitute(defaultOpening, productName),
		Questions: questions,
	}
}

// Load reads a flow definition from a YAML file. A missing file yields the
// default flow with no error. A file that cannot be read or parsed yields the
// default flow together with the error so the caller can log it.
func Load(path, productName string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(productName), nil
	}
	if err != nil {
		return Default(productName), eris.Wrapf(err, "flow: read config %s", path)
	}

	var raw fileFormat
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Default(productName), eris.Wrapf(err, "flow: parse config %s", path)
	}

	f := Default(productName)
	if raw.Opening != nil {
		f.Opening = substitute(raw.Opening, productName)
	}
	for _, c := range raw.Criteria {
		field := model.Field(c.Key)
		if !field.Valid() || strings.TrimSpace(c.Question) == "" {
			continue
		}
		f.Questions[field] = c.Question
	}
	if raw.Objections != nil {
		f.Objections = *raw.Objections
	}
	return f, nil
}

// Question returns the prompt for field.
func (f *Flow) Question(field model.Field) string {
	if q, ok := f.Questions[field]; ok {
		return q
	}
	return defaultQuestions[field]
}

// OpeningText joins the opening lines into one utterance prefix.
func (f *Flow) OpeningText() string {
	return strings.Join(f.Opening, " ")
}

// ObjectionHint returns the first configured hint for the objection category
// the utterance touches. Budget objections are checked before trust ones.
// The result is empty when nothing matches or no hint is configured.
func (f *Flow) ObjectionHint(utterance string) string {
	switch {
	case budgetObjectionRE.MatchString(utterance):
		return first(f.Objections.Budget)
	case trustObjectionRE.MatchString(utterance):
		return first(f.Objections.Trust)
	default:
		return ""
	}
}

func first(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return hints[0]
}

func substitute(lines []string, productName string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.ReplaceAll(l, productPlaceholder, productName)
	}
	return out
}

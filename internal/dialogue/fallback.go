package dialogue

import "github.com/sells-group/voice-agent/internal/model"

// Fallback texts for the free-text fields.
const (
	FallbackUseCase   = "Kein klarer Use Case genannt"
	FallbackPainPoint = "Kein klarer Pain Point genannt"
)

// fallbackPatch is the neutral value a field is force-filled with after too
// many unresolved prompts.
func fallbackPatch(field model.Field) model.Draft {
	switch field {
	case model.FieldInterestLevel:
		return model.Draft{InterestLevel: model.Ptr(model.InterestMedium)}
	case model.FieldBudgetMonthlyEUR:
		return model.Draft{BudgetMonthlyEUR: model.Ptr(1500)}
	case model.FieldCompanySizeEmployees:
		return model.Draft{CompanySizeEmployees: model.Ptr(25)}
	case model.FieldTimelineWeeks:
		return model.Draft{TimelineWeeks: model.Ptr(8)}
	case model.FieldHasAuthority:
		return model.Draft{HasAuthority: model.Ptr(false)}
	case model.FieldUseCase:
		return model.Draft{UseCase: model.Ptr(FallbackUseCase)}
	case model.FieldPainPoint:
		return model.Draft{PainPoint: model.Ptr(FallbackPainPoint)}
	default:
		return model.Draft{}
	}
}

func fallbackNotice(field model.Field) string {
	switch field {
	case model.FieldInterestLevel:
		return "Ich konnte die Prioritaet nicht eindeutig verstehen und setze sie vorlaeufig auf mittel."
	case model.FieldBudgetMonthlyEUR:
		return "Ich konnte das Budget nicht eindeutig verstehen und setze vorlaeufig 1500 Euro pro Monat."
	case model.FieldCompanySizeEmployees:
		return "Ich konnte die Teamgroesse nicht eindeutig verstehen und setze vorlaeufig 25 Mitarbeitende."
	case model.FieldTimelineWeeks:
		return "Ich konnte den Zeitplan nicht eindeutig verstehen und setze vorlaeufig 8 Wochen."
	case model.FieldHasAuthority:
		return "Ich konnte die Entscheidungsfrage nicht eindeutig verstehen und setze vorlaeufig auf nicht entscheidungsbefugt."
	case model.FieldUseCase:
		return "Ich konnte den Use Case nicht eindeutig verstehen und trage ihn vorlaeufig als offen ein."
	case model.FieldPainPoint:
		return "Ich konnte den Pain Point nicht eindeutig verstehen und trage ihn vorlaeufig als offen ein."
	default:
		return "Ich konnte das nicht eindeutig verstehen."
	}
}

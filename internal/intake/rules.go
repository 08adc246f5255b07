package intake

import (
	"strings"
	"unicode"

	"figurachat/internal/catalog"
	"figurachat/internal/models"
)

// SectionAlias maps a phrase a customer may use in a change request to the
// step that owns that section. Aliases are checked in slice order.
type SectionAlias struct {
	Phrase string
	StepID string
}

// Rules is the keyword policy driving confirmation-answer classification.
// Matching is whole-token: "no" inside "confirmando" never triggers a reject.
type Rules struct {
	Affirm   []string
	Reject   []string
	Change   []string
	Sections []SectionAlias
}

// DefaultRules returns the stock Spanish keyword tables.
func DefaultRules() Rules {
	return Rules{
		Affirm: []string{"sí", "si", "confirmar", "correcto", "ok"},
		Reject: []string{"no", "incorrecto", "mal"},
		Change: []string{"cambiar"},
		Sections: []SectionAlias{
			{Phrase: "cabeza", StepID: catalog.StepHead},
			{Phrase: "parte superior", StepID: catalog.StepUpperBody},
			{Phrase: "parte inferior", StepID: catalog.StepLowerBody},
			{Phrase: "pies", StepID: catalog.StepFeet},
			{Phrase: "detalles", StepID: catalog.StepExtraDetails},
			{Phrase: "datos", StepID: catalog.StepContact},
			{Phrase: "fotos", StepID: catalog.StepPhotos},
		},
	}
}

// Classify maps a confirmation-step answer to a status. Affirmative tokens win
// over reject tokens, reject over change, anything else is pending. For change
// requests the matched section's step id is returned alongside, empty when the
// target could not be resolved.
func (r Rules) Classify(text string) (models.ConfirmationStatus, string) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return models.ConfirmationPending, ""
	}
	switch {
	case containsAny(tokens, r.Affirm):
		return models.ConfirmationConfirmed, ""
	case containsAny(tokens, r.Reject):
		return models.ConfirmationRejected, ""
	case containsAny(tokens, r.Change):
		return models.ConfirmationChange, r.resolveSection(tokens)
	}
	return models.ConfirmationPending, ""
}

// resolveSection finds the first alias whose phrase appears, token for token,
// in the answer.
func (r Rules) resolveSection(tokens []string) string {
	for _, alias := range r.Sections {
		if containsPhrase(tokens, tokenize(alias.Phrase)) {
			return alias.StepID
		}
	}
	return ""
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func containsAny(tokens, wanted []string) bool {
	for _, t := range tokens {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, p := range phrase {
			if tokens[i+j] != p {
				continue outer
			}
		}
		return true
	}
	return false
}

package intake

import (
	"testing"

	"figurachat/internal/catalog"
	"figurachat/internal/models"
)

func TestClassifyAnswers(t *testing.T) {
	rules := DefaultRules()

	cases := []struct {
		name    string
		text    string
		status  models.ConfirmationStatus
		section string
	}{
		{"plain yes", "sí", models.ConfirmationConfirmed, ""},
		{"unaccented yes", "si", models.ConfirmationConfirmed, ""},
		{"confirm keyword", "Confirmar el pedido", models.ConfirmationConfirmed, ""},
		{"ok uppercase", "OK", models.ConfirmationConfirmed, ""},
		{"plain no", "no", models.ConfirmationRejected, ""},
		{"wrong details", "está mal", models.ConfirmationRejected, ""},
		{"incorrect", "es incorrecto", models.ConfirmationRejected, ""},
		{"change head", "cambiar cabeza", models.ConfirmationChange, catalog.StepHead},
		{"change upper body", "quiero cambiar la parte superior", models.ConfirmationChange, catalog.StepUpperBody},
		{"change lower body", "cambiar parte inferior", models.ConfirmationChange, catalog.StepLowerBody},
		{"change feet", "cambiar los pies", models.ConfirmationChange, catalog.StepFeet},
		{"change details", "cambiar detalles", models.ConfirmationChange, catalog.StepExtraDetails},
		{"change without section", "cambiar", models.ConfirmationChange, ""},
		{"unclassified", "quizás más tarde", models.ConfirmationPending, ""},
		{"empty", "   ", models.ConfirmationPending, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, section := rules.Classify(tc.text)
			if status != tc.status {
				t.Fatalf("Classify(%q) status = %q, want %q", tc.text, status, tc.status)
			}
			if section != tc.section {
				t.Fatalf("Classify(%q) section = %q, want %q", tc.text, section, tc.section)
			}
		})
	}
}

func TestClassifyWholeTokensOnly(t *testing.T) {
	rules := DefaultRules()

	// "no" embedded inside a longer word must not reject, and "confirmando" is
	// not the keyword "confirmar".
	status, _ := rules.Classify("estoy confirmando los datos")
	if status != models.ConfirmationPending {
		t.Fatalf("embedded keywords classified as %q, want pending", status)
	}

	status, _ = rules.Classify("me gusta el piano")
	if status != models.ConfirmationPending {
		t.Fatalf("substring 'no' in 'piano' classified as %q, want pending", status)
	}
}

func TestClassifyAffirmWinsOverReject(t *testing.T) {
	rules := DefaultRules()
	status, _ := rules.Classify("sí, no hay nada que cambiar")
	if status != models.ConfirmationConfirmed {
		t.Fatalf("mixed answer classified as %q, want confirmed", status)
	}
}

func TestClassifyPunctuationAndCase(t *testing.T) {
	rules := DefaultRules()
	status, section := rules.Classify("¡CAMBIAR Cabeza, por favor!")
	if status != models.ConfirmationChange || section != catalog.StepHead {
		t.Fatalf("got (%q, %q), want (change, %s)", status, section, catalog.StepHead)
	}
}

package intake

import (
	"fmt"
	"strings"

	"figurachat/internal/catalog"
	"figurachat/internal/models"
)

type summarySection struct {
	emoji string
	title string
	field string
}

var summarySections = []summarySection{
	{"🧠", "CABEZA", models.FieldHead},
	{"👕", "PARTE SUPERIOR", models.FieldUpperBody},
	{"👖", "PARTE INFERIOR", models.FieldLowerBody},
	{"👟", "PIES", models.FieldFeet},
	{"✨", "DETALLES ADICIONALES", models.FieldExtraDetails},
}

// Summary renders the human-readable order recap shown on the confirmation
// step and in the sidebar.
func (f *Flow) Summary(order *models.Order) string {
	if order == nil {
		return "No hay datos del pedido."
	}

	var b strings.Builder
	b.WriteString("**📋 RESUMEN COMPLETO DEL PEDIDO:**\n\n")
	for _, sec := range summarySections {
		value, _ := order.Field(sec.field)
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(&b, "%s **%s:**\n%s\n\n", sec.emoji, sec.title, value)
		} else {
			fmt.Fprintf(&b, "%s **%s:** No especificado\n\n", sec.emoji, sec.title)
		}
	}
	if n := len(order.Photos); n > 0 {
		fmt.Fprintf(&b, "📸 **FOTOS DE REFERENCIA:** %d archivo(s) subido(s)\n\n", n)
	}
	return b.String()
}

// Progress returns one done/pending line per catalog step, using the same
// completion predicate as the step walk.
func (f *Flow) Progress(order *models.Order) []string {
	lines := make([]string, 0, len(catalog.Steps()))
	for _, step := range catalog.Steps() {
		marker := "⏳"
		if f.StepComplete(order, step) {
			marker = "✅"
		}
		lines = append(lines, fmt.Sprintf("%s %s", marker, step.Name))
	}
	return lines
}

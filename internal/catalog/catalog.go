// Package catalog holds the fixed intake sequence. The order of the steps is
// significant: the assembler always walks them front to back.
package catalog

import "figurachat/internal/models"

// SummaryPlaceholder marks where the rendered order summary is inserted into
// the confirmation prompt.
const SummaryPlaceholder = "{RESUMEN_COMPLETO}"

// Step ids.
const (
	StepContact      = "datos_cliente"
	StepHead         = "cabeza"
	StepUpperBody    = "parte_superior"
	StepLowerBody    = "parte_inferior"
	StepFeet         = "pies"
	StepPhotos       = "fotos_referencia"
	StepExtraDetails = "detalles_adicionales"
	StepConfirmation = "confirmacion"
)

// Step is one unit of the intake sequence. Field names the order section the
// step writes to; the confirmation step has no scalar field of its own.
type Step struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	Field       string `json:"field"`
}

var steps = []Step{
	{
		ID:          StepContact,
		Name:        "DATOS DEL CLIENTE",
		Description: "nombre y telefono del cliente",
		Prompt: "📱 **DATOS DE CONTACTO:**\n\nPara finalizar tu pedido, necesito tus datos:\n\n" +
			"• **Nombre completo:**\n• **Número de WhatsApp:** (con código de país)\n\n" +
			"Ejemplo: Juan Pérez, +51 987654321\n\n¿Cuál es tu nombre y número de teléfono?",
		Field: models.FieldContact,
	},
	{
		ID:          StepHead,
		Name:        "CABEZA",
		Description: "detalles de la cabeza",
		Prompt: "🧠 **Vamos a diseñar la CABEZA de tu figura:**\n\nPor favor, descríbeme en detalle:\n" +
			"• **Cabello:** color, estilo, longitud\n• **Rostro:** forma, expresión, características especiales\n" +
			"• **Accesorios:** casco, gafas, sombrero, diadema, etc.\n• **Otros detalles:** barba, bigote, maquillaje, etc.\n\n" +
			"Puedes darme los detalles en varios mensajes si lo prefieres. Cuando termines, dime **'listo'** o **'continuar'**.\n\n" +
			"¿Cómo quieres la cabeza de tu figura?",
		Field: models.FieldHead,
	},
	{
		ID:          StepUpperBody,
		Name:        "PARTE SUPERIOR DEL CUERPO",
		Description: "detalles del torso y brazos",
		Prompt: "👕 **Ahora la PARTE SUPERIOR DEL CUERPO:**\n\nDescribe el torso y brazos:\n" +
			"• **Torso:** camisa, polo, suéter, chaleco, blusa (color y estilo)\n" +
			"• **Brazos:** posición, tatuajes, relojes, brazalete\n• **Hombros:** hombreras, mochila, etc.\n\n" +
			"Puedes agregar detalles en varios mensajes. Cuando termines, dime **'listo'** o **'continuar'**.\n\n" +
			"¿Qué detalles quieres para la parte superior?",
		Field: models.FieldUpperBody,
	},
	{
		ID:          StepLowerBody,
		Name:        "PARTE INFERIOR DEL CUERPO",
		Description: "detalles de cintura hacia abajo",
		Prompt: "👖 **Ahora la PARTE INFERIOR DEL CUERPO:**\n\nDescribe desde la cintura hacia abajo:\n" +
			"• **Cintura/Cadera:** cinturón, faldas, shorts\n• **Piernas:** pantalón, jeans, vestido (estilo y color)\n" +
			"• **Posición:** de pie, sentado, corriendo, saltando\n\n" +
			"Puedes agregar detalles en varios mensajes. Cuando termines, dime **'listo'** o **'continuar'**.\n\n" +
			"¿Cómo quieres la parte inferior del cuerpo?",
		Field: models.FieldLowerBody,
	},
	{
		ID:          StepFeet,
		Name:        "PIES",
		Description: "detalles del calzado",
		Prompt: "👟 **Finalmente los PIES y calzado:**\n\nDescribe:\n" +
			"• **Calzado:** botas, tenis, zapatos, sandalias, zapatillas\n" +
			"• **Estilo:** deportivo, formal, casual, color específico\n• **Detalles:** cordones, hebillas, plataforma, etc.\n\n" +
			"¿Qué tipo de calzado quieres?",
		Field: models.FieldFeet,
	},
	{
		ID:          StepPhotos,
		Name:        "FOTOS DE REFERENCIA",
		Description: "imágenes de apoyo",
		Prompt: "📸 **FOTOS DE REFERENCIA (OBLIGATORIO):**\n\nPor favor sube al menos una imagen de referencia para tu figura.\n\n" +
			"Usa el botón de imagen 🖼️ para subir fotos.\n\n" +
			"• Si ya subiste tus fotos, escribe **'listo'** para continuar.\n• Si no tienes fotos, escribe **'no tengo'**.",
		Field: models.FieldPhotos,
	},
	{
		ID:          StepExtraDetails,
		Name:        "DETALLES ADICIONALES",
		Description: "elementos extra",
		Prompt: "✨ **DETALLES ADICIONALES:**\n\n¿Hay algo más que debamos considerar?\n" +
			"• **Accesorios extra:** bolso, herramienta, mascota, etc.\n• **Base o soporte:** texto en la base, logo, etc.\n" +
			"• **Notas especiales:** cualquier detalle importante\n\n¿Algo más que agregar?",
		Field: models.FieldExtraDetails,
	},
	{
		ID:          StepConfirmation,
		Name:        "CONFIRMACIÓN FINAL",
		Description: "confirmar todo el pedido",
		Prompt: "📋 **¡REVISIÓN FINAL DEL PEDIDO!**\n\nPor favor, revisa cuidadosamente todos los detalles:\n\n" +
			SummaryPlaceholder + "\n\n**¿Está todo CORRECTO?**\n\nResponde:\n" +
			"• **SÍ** - para confirmar y enviar tu pedido\n• **NO** - para corregir algo\n" +
			"• **CAMBIAR [sección]** - para modificar una parte específica\n\nEscribe tu respuesta:",
		Field: models.FieldConfirmation,
	},
}

// Steps returns the fixed ordered sequence.
func Steps() []Step {
	return steps
}

// First returns the opening step of the flow.
func First() Step {
	return steps[0]
}

// ByID looks a step up by id.
func ByID(id string) (Step, bool) {
	for _, s := range steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// ByField looks a step up by the order section it writes to.
func ByField(field string) (Step, bool) {
	for _, s := range steps {
		if s.Field == field {
			return s, true
		}
	}
	return Step{}, false
}

package intake

import "math/rand"

// Response kinds used by the chat engine.
const (
	RespGreeting             = "greeting"
	RespAcknowledgment       = "acknowledgment"
	RespStepComplete         = "step_complete"
	RespNextSection          = "next_section"
	RespConfirmationPositive = "confirmation_positive"
	RespConfirmationNegative = "confirmation_negative"
	RespOrderComplete        = "order_complete"
	RespErrorGeneric         = "error_generic"
)

// Canned assistant lines, one pool per situation. The flow runs without any
// generative model; variety comes from a random pick.
var responsePools = map[string][]string{
	RespGreeting: {
		"¡Hola! Soy tu asistente y estoy aquí para ayudarte a crear tu figura personalizada. 🎯",
		"¡Bienvenido! Estoy listo para diseñar tu figura única. Comencemos con los detalles. 🎨",
		"¡Hola! Vamos a crear tu figura personalizada paso a paso. ¡Empecemos! 🚀",
	},
	RespAcknowledgment: {
		"Entendido perfectamente.",
		"¡Excelente detalle!",
		"Perfecto, he anotado eso.",
		"Entendido, continuemos con eso.",
		"¡Perfecto! Agregado a tu diseño.",
	},
	RespStepComplete: {
		"¡Perfecto! He completado esta sección de tu figura.",
		"¡Excelente! Esta parte está lista.",
		"¡Perfecto! Detalles guardados correctamente.",
	},
	RespNextSection: {
		"Ahora vamos con la siguiente sección.",
		"Continuemos con el siguiente paso.",
		"Pasemos a la siguiente parte de tu diseño.",
	},
	RespConfirmationPositive: {
		"¡Perfecto! Tu pedido ha sido confirmado.",
		"¡Excelente! Todo está correcto.",
		"¡Perfecto! Pedido confirmado exitosamente.",
	},
	RespConfirmationNegative: {
		"Entendido. Vamos a corregir los detalles.",
		"No hay problema. Revisemos qué cambiar.",
		"Entendido. Corrijamos lo necesario.",
	},
	RespOrderComplete: {
		"¡Felicidades! Tu figura personalizada está completa. 🎉",
		"¡Excelente! Hemos terminado tu diseño. 🎯",
		"¡Perfecto! Tu figura está lista para producción. 🚀",
	},
	RespErrorGeneric: {
		"Lo siento, tuve un problema. Por favor intenta nuevamente.",
		"Ha ocurrido un error. Por favor repite tu mensaje.",
		"Tuve un problema técnico. Por favor intenta de nuevo.",
	},
}

// Pick returns one canned line for the given kind.
func Pick(kind string) string {
	pool, ok := responsePools[kind]
	if !ok || len(pool) == 0 {
		return responsePools[RespAcknowledgment][0]
	}
	return pool[rand.Intn(len(pool))]
}

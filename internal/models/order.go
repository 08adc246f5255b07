package models

import "time"

// Storage keys for the order sections. They match the keys used in the
// persisted JSON snapshot and in the chat widget payloads.
const (
	FieldContact      = "datos_cliente"
	FieldHead         = "cabeza"
	FieldUpperBody    = "parte_superior"
	FieldLowerBody    = "parte_inferior"
	FieldFeet         = "pies"
	FieldPhotos       = "fotos_referencia"
	FieldExtraDetails = "detalles_adicionales"
	FieldConfirmation = "confirmacion"
)

// ConfirmationStatus is the customer's answer on the final review step.
type ConfirmationStatus string

const (
	ConfirmationUnset     ConfirmationStatus = ""
	ConfirmationPending   ConfirmationStatus = "pendiente"
	ConfirmationConfirmed ConfirmationStatus = "confirmado"
	ConfirmationRejected  ConfirmationStatus = "rechazado"
	ConfirmationChange    ConfirmationStatus = "cambiar"
)

// Photo is one uploaded reference image. Data carries the base64 payload as
// received from the widget, optionally prefixed with a data: URL header.
type Photo struct {
	Filename   string    `json:"filename"`
	Data       string    `json:"data"`
	CapturedAt time.Time `json:"captured_at"`
}

// Order is the accumulating answer set for one customer session. All scalar
// fields are always present; empty string means "not yet provided".
type Order struct {
	Contact       string             `json:"datos_cliente"`
	Head          string             `json:"cabeza"`
	UpperBody     string             `json:"parte_superior"`
	LowerBody     string             `json:"parte_inferior"`
	Feet          string             `json:"pies"`
	ExtraDetails  string             `json:"detalles_adicionales"`
	Photos        []Photo            `json:"fotos_referencia"`
	PhotoComments string             `json:"fotos_comentarios"`
	Confirmation  ConfirmationStatus `json:"confirmacion"`
	ChangeSection string             `json:"cambiar_seccion,omitempty"`
}

// Field returns the scalar section stored under key.
func (o *Order) Field(key string) (string, bool) {
	switch key {
	case FieldContact:
		return o.Contact, true
	case FieldHead:
		return o.Head, true
	case FieldUpperBody:
		return o.UpperBody, true
	case FieldLowerBody:
		return o.LowerBody, true
	case FieldFeet:
		return o.Feet, true
	case FieldExtraDetails:
		return o.ExtraDetails, true
	}
	return "", false
}

// SetField overwrites the scalar section stored under key. Unknown keys are
// rejected so malformed updates cannot grow the record.
func (o *Order) SetField(key, value string) bool {
	switch key {
	case FieldContact:
		o.Contact = value
	case FieldHead:
		o.Head = value
	case FieldUpperBody:
		o.UpperBody = value
	case FieldLowerBody:
		o.LowerBody = value
	case FieldFeet:
		o.Feet = value
	case FieldExtraDetails:
		o.ExtraDetails = value
	default:
		return false
	}
	return true
}

// Description renders the combined section recap stored alongside the order
// row so the panel can show the figure at a glance.
func (o *Order) Description() string {
	return "Cabeza: " + o.Head + "\n" +
		"Parte Superior: " + o.UpperBody + "\n" +
		"Parte Inferior: " + o.LowerBody + "\n" +
		"Pies: " + o.Feet + "\n" +
		"Detalles: " + o.ExtraDetails
}

// Clone returns a deep copy of the order, photo list included.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	dup := *o
	if o.Photos != nil {
		dup.Photos = make([]Photo, len(o.Photos))
		copy(dup.Photos, o.Photos)
	}
	return &dup
}

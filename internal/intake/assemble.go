// Package intake implements the order-assembly state machine: extracting a
// partial update from a chat message, merging it into the order record, and
// walking the catalog for the first incomplete step.
package intake

import (
	"strings"

	"figurachat/internal/catalog"
	"figurachat/internal/models"
)

// Update is a partial order change extracted from a single inbound message.
// Zero values mean "not present"; Merge applies only what is present.
type Update struct {
	Fields        map[string]string
	Photos        []models.Photo
	PhotoComments string
	Confirmation  models.ConfirmationStatus
	ChangeSection string
}

// Flow binds the catalog walk to a classification policy.
type Flow struct {
	rules Rules
}

// NewFlow builds a flow with the supplied rules.
func NewFlow(rules Rules) *Flow {
	return &Flow{rules: rules}
}

// DefaultOrder returns a fresh empty order record.
func DefaultOrder() *models.Order {
	return &models.Order{Photos: []models.Photo{}}
}

// Extract derives the partial update a message produces on the given step.
// It never fails: text that carries no information yields an empty update.
func (f *Flow) Extract(stepID, text string) Update {
	text = strings.TrimSpace(text)
	upd := Update{}

	switch stepID {
	case catalog.StepPhotos:
		// Typed text on the photo step is kept as commentary, the photos
		// themselves arrive through the attach operation.
		upd.PhotoComments = text
	case catalog.StepConfirmation:
		status, section := f.rules.Classify(text)
		upd.Confirmation = status
		upd.ChangeSection = section
	default:
		if step, ok := catalog.ByID(stepID); ok {
			upd.Fields = map[string]string{step.Field: text}
		}
	}
	return upd
}

// Merge applies an update onto the order. Photos append, scalar fields are
// last-write-wins but only for non-empty values, and the confirmation pair is
// replaced whenever present. Unknown field keys are dropped.
func (f *Flow) Merge(order *models.Order, upd Update) {
	if order == nil {
		return
	}
	if len(upd.Photos) > 0 {
		order.Photos = append(order.Photos, upd.Photos...)
	}
	if strings.TrimSpace(upd.PhotoComments) != "" {
		order.PhotoComments = upd.PhotoComments
	}
	for key, value := range upd.Fields {
		if strings.TrimSpace(value) == "" {
			continue
		}
		order.SetField(key, value)
	}
	if upd.Confirmation != models.ConfirmationUnset {
		order.Confirmation = upd.Confirmation
		order.ChangeSection = upd.ChangeSection
	}
}

// StepComplete reports whether the order satisfies one step. The confirmation
// step is never complete here: leaving it is driven by the classified answer.
func (f *Flow) StepComplete(order *models.Order, step catalog.Step) bool {
	if order == nil {
		return false
	}
	switch step.ID {
	case catalog.StepConfirmation:
		return false
	case catalog.StepPhotos:
		return len(order.Photos) > 0 || strings.TrimSpace(order.PhotoComments) != ""
	}
	value, ok := order.Field(step.Field)
	return ok && strings.TrimSpace(value) != ""
}

// CurrentStep walks the catalog in order and returns the first incomplete
// step. The second return is false only when the whole flow is resolved,
// which requires an explicit confirmed answer.
func (f *Flow) CurrentStep(order *models.Order) (catalog.Step, bool) {
	if order == nil {
		return catalog.First(), true
	}
	for _, step := range catalog.Steps() {
		if step.ID == catalog.StepConfirmation {
			if order.Confirmation == models.ConfirmationConfirmed {
				return catalog.Step{}, false
			}
			return step, true
		}
		if !f.StepComplete(order, step) {
			return step, true
		}
	}
	return catalog.Step{}, false
}

// Rules exposes the active classification policy.
func (f *Flow) Rules() Rules {
	return f.rules
}

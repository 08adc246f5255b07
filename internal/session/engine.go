// Package session runs the guided conversation for each connected visitor: it
// owns the live session registry and turns inbound chat events into order
// updates and assistant replies.
package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"figurachat/internal/catalog"
	"figurachat/internal/intake"
	"figurachat/internal/models"
)

// ConversationLog persists chat history and order snapshots.
type ConversationLog interface {
	GetOrCreate(ctx context.Context, userID string) (int64, *models.Order, error)
	SaveMessage(ctx context.Context, userID string, role models.Role, content string, order *models.Order) error
	History(ctx context.Context, userID string, limit int) ([]*models.Message, error)
}

// Notifier finalizes a confirmed order. It reports the stored order id and
// whether the notification email went out; it never fails the confirmation.
type Notifier interface {
	Finalize(ctx context.Context, order *models.Order, userID string) (int64, bool)
}

// Engine drives the intake conversation for every live session.
type Engine struct {
	flow         *intake.Flow
	registry     *Registry
	logStore     ConversationLog
	notifier     Notifier
	historyLimit int
}

// NewEngine wires the conversation engine. historyLimit caps how many past
// messages are replayed on reconnect.
func NewEngine(flow *intake.Flow, registry *Registry, logStore ConversationLog, notifier Notifier, historyLimit int) *Engine {
	if historyLimit <= 0 {
		historyLimit = 5
	}
	return &Engine{
		flow:         flow,
		registry:     registry,
		logStore:     logStore,
		notifier:     notifier,
		historyLimit: historyLimit,
	}
}

// Result is the outcome of one conversation operation.
type Result struct {
	Reply          string
	StepID         string
	Order          *models.Order
	OrderConfirmed bool
	OrderID        int64
	EmailSent      bool
	OrderReset     bool
}

// ConnectResult is the outcome of opening a session.
type ConnectResult struct {
	UserID  string
	Prompt  string
	StepID  string
	Order   *models.Order
	History []*models.Message
	Resumed bool
}

// Connect opens or resumes a session for the visitor. A stored snapshot from a
// previous visit is picked up where it left off.
func (e *Engine) Connect(ctx context.Context, userID string) (*ConnectResult, error) {
	convID, stored, err := e.logStore.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}

	order := stored
	resumed := order != nil
	if order == nil {
		order = intake.DefaultOrder()
	}
	step, active := e.flow.CurrentStep(order)

	s := &Session{
		UserID:         userID,
		ConversationID: convID,
		Order:          order,
		ConnectedAt:    time.Now(),
	}
	if active {
		s.Current = step.ID
	}
	e.registry.Put(s)

	prompt := intake.Pick(intake.RespGreeting)
	if active {
		prompt += "\n\n" + e.renderPrompt(step, order)
	} else {
		prompt += "\n\n" + intake.Pick(intake.RespOrderComplete)
	}

	history, err := e.logStore.History(ctx, userID, e.historyLimit)
	if err != nil {
		log.Printf("load history for %s failed: %v", userID, err)
	}

	return &ConnectResult{
		UserID:  userID,
		Prompt:  prompt,
		StepID:  s.Current,
		Order:   order.Clone(),
		History: history,
		Resumed: resumed,
	}, nil
}

// Disconnect drops the visitor's live session. The persisted snapshot stays.
func (e *Engine) Disconnect(userID string) {
	e.registry.Remove(userID)
}

// ActiveSessions reports how many visitors are currently connected.
func (e *Engine) ActiveSessions() int {
	return e.registry.Len()
}

// Advance processes one chat message on the session's current step.
func (e *Engine) Advance(ctx context.Context, userID, text string) (*Result, error) {
	s, ok := e.registry.Get(userID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		// Nothing to record, repeat the current prompt.
		return e.reprompt(s), nil
	}

	if err := e.logStore.SaveMessage(ctx, userID, models.RoleUser, text, nil); err != nil {
		log.Printf("save user message for %s failed: %v", userID, err)
	}

	if s.Current == "" {
		res := &Result{Reply: intake.Pick(intake.RespOrderComplete), Order: s.Order.Clone()}
		e.mirror(ctx, s, res.Reply)
		return res, nil
	}

	upd := e.flow.Extract(s.Current, text)
	e.flow.Merge(s.Order, upd)

	var res *Result
	if s.Current == catalog.StepConfirmation {
		res = e.advanceConfirmation(ctx, s)
	} else {
		res = e.advanceStep(s)
	}
	e.mirror(ctx, s, res.Reply)
	return res, nil
}

// advanceStep handles a message on any step before the final review.
func (e *Engine) advanceStep(s *Session) *Result {
	target, active := e.flow.CurrentStep(s.Order)
	if !active {
		// The walk only ends on an explicit confirmation, which cannot have
		// happened outside the review step.
		log.Printf("step walk ended unexpectedly for %s on %s", s.UserID, s.Current)
		target, active = catalog.First(), true
	}

	// A cleared section that is filled back in returns to where the customer
	// was before clearing it.
	if s.ReturnStep != "" {
		if step, ok := catalog.ByID(s.Current); ok && e.flow.StepComplete(s.Order, step) {
			if ret, ok := catalog.ByID(s.ReturnStep); ok {
				target = ret
			}
			s.ReturnStep = ""
		}
	}

	var reply string
	if target.ID != s.Current {
		reply = "✅ ¡Guardado! " + intake.Pick(intake.RespStepComplete) +
			"\n\n" + e.renderPrompt(target, s.Order)
		s.Current = target.ID
	} else {
		reply = intake.Pick(intake.RespAcknowledgment) + "\n\n" + e.renderPrompt(target, s.Order)
	}
	return &Result{Reply: reply, StepID: s.Current, Order: s.Order.Clone()}
}

// advanceConfirmation handles the classified answer on the final review step.
func (e *Engine) advanceConfirmation(ctx context.Context, s *Session) *Result {
	switch s.Order.Confirmation {
	case models.ConfirmationConfirmed:
		orderID, emailSent := e.notifier.Finalize(ctx, s.Order, s.UserID)
		s.Current = ""
		reply := intake.Pick(intake.RespConfirmationPositive) + "\n\n" + intake.Pick(intake.RespOrderComplete) +
			"\n\nNos pondremos en contacto contigo pronto para coordinar el pago y la entrega. 💬"
		return &Result{
			Reply:          reply,
			Order:          s.Order.Clone(),
			OrderConfirmed: true,
			OrderID:        orderID,
			EmailSent:      emailSent,
		}

	case models.ConfirmationRejected:
		s.Order = intake.DefaultOrder()
		s.Current = catalog.First().ID
		s.ReturnStep = ""
		reply := intake.Pick(intake.RespConfirmationNegative) +
			"\n\nEmpecemos de nuevo.\n\n" + e.renderPrompt(catalog.First(), s.Order)
		return &Result{Reply: reply, StepID: s.Current, Order: s.Order.Clone(), OrderReset: true}

	case models.ConfirmationChange:
		if step, ok := catalog.ByID(s.Order.ChangeSection); ok {
			s.Current = step.ID
			s.ReturnStep = catalog.StepConfirmation
			reply := fmt.Sprintf("Perfecto, vamos a modificar **%s**.\n\n%s",
				step.Name, e.renderPrompt(step, s.Order))
			return &Result{Reply: reply, StepID: s.Current, Order: s.Order.Clone()}
		}
		// Change request without a recognizable section, ask again.
		reply := "¿Qué sección quieres cambiar? Puedes decir: cabeza, parte superior, parte inferior, pies o detalles.\n\n" +
			e.renderPrompt(mustStep(catalog.StepConfirmation), s.Order)
		return &Result{Reply: reply, StepID: s.Current, Order: s.Order.Clone()}
	}

	// Pending or anything unclassified repeats the review.
	return &Result{
		Reply:  e.renderPrompt(mustStep(catalog.StepConfirmation), s.Order),
		StepID: s.Current,
		Order:  s.Order.Clone(),
	}
}

// AttachPhoto stores one uploaded reference image. When the customer is on the
// photo step the walk advances as soon as the step is satisfied.
func (e *Engine) AttachPhoto(ctx context.Context, userID, filename, data string) (*Result, error) {
	s, ok := e.registry.Get(userID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	photo := models.Photo{Filename: filename, Data: data, CapturedAt: time.Now().UTC()}
	e.flow.Merge(s.Order, intake.Update{Photos: []models.Photo{photo}})

	reply := fmt.Sprintf("📸 ¡Imagen **%s** recibida! Ya tienes %d foto(s) de referencia.",
		filename, len(s.Order.Photos))

	if s.Current == catalog.StepPhotos {
		target, active := e.flow.CurrentStep(s.Order)
		if s.ReturnStep != "" {
			if ret, ok := catalog.ByID(s.ReturnStep); ok {
				target = ret
			}
			s.ReturnStep = ""
			active = true
		}
		if active && target.ID != s.Current {
			reply += "\n\n" + e.renderPrompt(target, s.Order)
			s.Current = target.ID
		}
	}

	res := &Result{Reply: reply, StepID: s.Current, Order: s.Order.Clone()}
	e.mirror(ctx, s, res.Reply)
	return res, nil
}

// EditSection jumps the conversation to a specific section on request.
func (e *Engine) EditSection(ctx context.Context, userID, sectionID string) (*Result, error) {
	s, ok := e.registry.Get(userID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	step, ok := catalog.ByID(sectionID)
	if !ok {
		return nil, fmt.Errorf("unknown section %q", sectionID)
	}
	s.Current = step.ID
	s.ReturnStep = ""

	res := &Result{
		Reply:  fmt.Sprintf("✏️ Editando **%s**.\n\n%s", step.Name, e.renderPrompt(step, s.Order)),
		StepID: s.Current,
		Order:  s.Order.Clone(),
	}
	e.mirror(ctx, s, res.Reply)
	return res, nil
}

// ClearResult extends Result with the step the flow will return to once the
// cleared section is filled back in.
type ClearResult struct {
	Result
	ClearedStepID string
	ReturnStepID  string
}

// ClearSection wipes one section and moves the conversation there. The step
// the customer was on is remembered and resumed afterwards.
func (e *Engine) ClearSection(ctx context.Context, userID, sectionID, returnStepID string) (*ClearResult, error) {
	s, ok := e.registry.Get(userID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	step, ok := catalog.ByID(sectionID)
	if !ok {
		return nil, fmt.Errorf("unknown section %q", sectionID)
	}

	switch step.ID {
	case catalog.StepPhotos:
		s.Order.Photos = []models.Photo{}
		s.Order.PhotoComments = ""
	case catalog.StepConfirmation:
		s.Order.Confirmation = models.ConfirmationUnset
		s.Order.ChangeSection = ""
	default:
		s.Order.SetField(step.Field, "")
	}

	if returnStepID == "" {
		returnStepID = s.Current
	}
	if _, ok := catalog.ByID(returnStepID); !ok || returnStepID == step.ID {
		returnStepID = ""
	}
	s.ReturnStep = returnStepID
	s.Current = step.ID

	reply := fmt.Sprintf("🗑️ Sección **%s** borrada.", step.Name)
	if returnStepID != "" {
		reply += " Cuando la completes volveremos a donde estabas."
	}
	res := &ClearResult{
		Result: Result{
			Reply:  reply + "\n\n" + e.renderPrompt(step, s.Order),
			StepID: s.Current,
			Order:  s.Order.Clone(),
		},
		ClearedStepID: step.ID,
		ReturnStepID:  returnStepID,
	}
	e.mirror(ctx, s, res.Reply)
	return res, nil
}

// Reset discards the whole order and restarts the flow from the first step.
func (e *Engine) Reset(ctx context.Context, userID string) (*Result, error) {
	s, ok := e.registry.Get(userID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Order = intake.DefaultOrder()
	s.Current = catalog.First().ID
	s.ReturnStep = ""

	res := &Result{
		Reply:      "🔄 Pedido reiniciado.\n\n" + intake.Pick(intake.RespGreeting) + "\n\n" + e.renderPrompt(catalog.First(), s.Order),
		StepID:     s.Current,
		Order:      s.Order.Clone(),
		OrderReset: true,
	}
	e.mirror(ctx, s, res.Reply)
	return res, nil
}

// SummaryResult is the sidebar payload: the rendered recap plus per-step
// progress markers.
type SummaryResult struct {
	Summary  string
	Progress []string
	StepID   string
	Order    *models.Order
}

// Summary renders the current order recap for the visitor.
func (e *Engine) Summary(userID string) (*SummaryResult, error) {
	s, ok := e.registry.Get(userID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return &SummaryResult{
		Summary:  e.flow.Summary(s.Order),
		Progress: e.flow.Progress(s.Order),
		StepID:   s.Current,
		Order:    s.Order.Clone(),
	}, nil
}

// renderPrompt returns the step prompt with the recap substituted in on the
// review step.
func (e *Engine) renderPrompt(step catalog.Step, order *models.Order) string {
	if strings.Contains(step.Prompt, catalog.SummaryPlaceholder) {
		return strings.ReplaceAll(step.Prompt, catalog.SummaryPlaceholder, e.flow.Summary(order))
	}
	return step.Prompt
}

// reprompt repeats the current step without touching the order. The caller
// holds the session lock.
func (e *Engine) reprompt(s *Session) *Result {
	if s.Current == "" {
		return &Result{Reply: intake.Pick(intake.RespOrderComplete), Order: s.Order.Clone()}
	}
	step := mustStep(s.Current)
	return &Result{Reply: e.renderPrompt(step, s.Order), StepID: s.Current, Order: s.Order.Clone()}
}

// mirror saves the assistant reply and the fresh snapshot, best effort.
func (e *Engine) mirror(ctx context.Context, s *Session, reply string) {
	if err := e.logStore.SaveMessage(ctx, s.UserID, models.RoleAssistant, reply, s.Order); err != nil {
		log.Printf("save assistant message for %s failed: %v", s.UserID, err)
	}
}

func mustStep(id string) catalog.Step {
	step, _ := catalog.ByID(id)
	return step
}

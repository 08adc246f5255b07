// Package ws is the realtime edge: it upgrades chat widget connections,
// decodes the event protocol and hands each event to the dispatcher so the
// conversation engine processes one event per visitor at a time.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"figurachat/internal/intake"
	"figurachat/internal/session"
	"figurachat/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Inbound event names.
const (
	evUserMessage   = "user_message"
	evImageUpload   = "image_upload"
	evEditSection   = "edit_section"
	evClearSection  = "clear_section"
	evDeleteSection = "borrar_seccion"
	evResetOrder    = "reset_order"
	evOrderSummary  = "get_order_summary"
)

// Outbound event names.
const (
	evConnectionStatus = "connection_status"
	evAIResponse       = "ai_response"
	evOrderUpdated     = "order_updated"
	evImageProcessed   = "image_processed"
	evOrderSummaryOut  = "order_summary"
	evOrderReset       = "order_reset"
	evSectionCleared   = "seccion_borrada"
)

const eventTimeout = 30 * time.Second

// Gateway owns the websocket endpoint.
type Gateway struct {
	engine     *session.Engine
	dispatcher *worker.Dispatcher
	upgrader   websocket.Upgrader
}

// NewGateway wires the realtime edge.
func NewGateway(engine *session.Engine, dispatcher *worker.Dispatcher) *Gateway {
	return &Gateway{
		engine:     engine,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The widget is embedded on the storefront, any origin connects.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handle upgrades the request and runs the connection until it closes.
func (g *Gateway) Handle(c *gin.Context) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	userID := c.Query("user_id")
	if userID == "" {
		userID = uuid.NewString()
	}

	cl := &client{
		gateway: g,
		conn:    conn,
		userID:  userID,
		send:    make(chan []byte, 32),
	}
	go cl.writePump()

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	res, err := g.engine.Connect(ctx, userID)
	cancel()
	if err != nil {
		log.Printf("connect %s failed: %v", userID, err)
		cl.emit(evConnectionStatus, gin.H{"status": "error", "message": intake.Pick(intake.RespErrorGeneric)})
		_ = conn.Close()
		return
	}

	cl.emit(evConnectionStatus, gin.H{
		"status":         "connected",
		"user_id":        res.UserID,
		"initial_prompt": res.Prompt,
		"current_step":   res.StepID,
		"resumed":        res.Resumed,
		"history":        res.History,
	})
	cl.emit(evOrderUpdated, gin.H{"order": res.Order, "current_step": res.StepID})

	cl.readPump()
}

// ActiveSessions reports the live session count for the health endpoint.
func (g *Gateway) ActiveSessions() int {
	return g.engine.ActiveSessions()
}

// disconnect tears the session down. The send channel stays open because a
// queued job may still emit; the write pump exits on its next failed write.
func (g *Gateway) disconnect(cl *client) {
	g.dispatcher.CancelUser(cl.userID)
	g.engine.Disconnect(cl.userID)
	_ = cl.conn.Close()
}

// route submits the event as a job keyed by the visitor, keeping per-visitor
// handling sequential.
func (g *Gateway) route(cl *client, env envelope) {
	g.dispatcher.Submit(worker.Job{
		UserID: cl.userID,
		Run: func() {
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			g.handleEvent(ctx, cl, env)
		},
	})
}

func (g *Gateway) handleEvent(ctx context.Context, cl *client, env envelope) {
	switch env.Event {
	case evUserMessage:
		var req struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			cl.emit(evAIResponse, gin.H{"message": intake.Pick(intake.RespErrorGeneric)})
			return
		}
		res, err := g.engine.Advance(ctx, cl.userID, req.Message)
		if g.failed(cl, err) {
			return
		}
		reply := gin.H{"message": res.Reply, "current_step": res.StepID}
		if res.OrderConfirmed {
			reply["order_confirmed"] = true
			reply["order_id"] = res.OrderID
			reply["email_sent"] = res.EmailSent
		}
		cl.emit(evAIResponse, reply)
		cl.emit(evOrderUpdated, gin.H{"order": res.Order, "current_step": res.StepID})
		if res.OrderReset {
			cl.emit(evOrderReset, gin.H{"current_step": res.StepID})
		}

	case evImageUpload:
		var req struct {
			Filename string `json:"filename"`
			Data     string `json:"data"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil || req.Data == "" {
			cl.emit(evAIResponse, gin.H{"message": intake.Pick(intake.RespErrorGeneric)})
			return
		}
		res, err := g.engine.AttachPhoto(ctx, cl.userID, req.Filename, req.Data)
		if g.failed(cl, err) {
			return
		}
		cl.emit(evImageProcessed, gin.H{
			"filename":     req.Filename,
			"photo_count":  len(res.Order.Photos),
			"message":      res.Reply,
			"current_step": res.StepID,
		})
		cl.emit(evOrderUpdated, gin.H{"order": res.Order, "current_step": res.StepID})

	case evEditSection:
		var req struct {
			Section string `json:"section"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			cl.emit(evAIResponse, gin.H{"message": intake.Pick(intake.RespErrorGeneric)})
			return
		}
		res, err := g.engine.EditSection(ctx, cl.userID, req.Section)
		if g.failed(cl, err) {
			return
		}
		cl.emit(evAIResponse, gin.H{"message": res.Reply, "current_step": res.StepID})
		cl.emit(evOrderUpdated, gin.H{"order": res.Order, "current_step": res.StepID})

	case evClearSection, evDeleteSection:
		var req struct {
			Section    string `json:"seccion"`
			ReturnStep string `json:"seccion_retorno"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			cl.emit(evAIResponse, gin.H{"message": intake.Pick(intake.RespErrorGeneric)})
			return
		}
		res, err := g.engine.ClearSection(ctx, cl.userID, req.Section, req.ReturnStep)
		if g.failed(cl, err) {
			return
		}
		cl.emit(evSectionCleared, gin.H{
			"seccion":         res.ClearedStepID,
			"seccion_retorno": res.ReturnStepID,
			"current_step":    res.StepID,
		})
		cl.emit(evAIResponse, gin.H{"message": res.Reply, "current_step": res.StepID})
		cl.emit(evOrderUpdated, gin.H{"order": res.Order, "current_step": res.StepID})

	case evResetOrder:
		res, err := g.engine.Reset(ctx, cl.userID)
		if g.failed(cl, err) {
			return
		}
		cl.emit(evOrderReset, gin.H{"current_step": res.StepID})
		cl.emit(evAIResponse, gin.H{"message": res.Reply, "current_step": res.StepID})
		cl.emit(evOrderUpdated, gin.H{"order": res.Order, "current_step": res.StepID})

	case evOrderSummary:
		res, err := g.engine.Summary(cl.userID)
		if g.failed(cl, err) {
			return
		}
		cl.emit(evOrderSummaryOut, gin.H{
			"summary":      res.Summary,
			"progress":     res.Progress,
			"order":        res.Order,
			"current_step": res.StepID,
		})

	default:
		log.Printf("unknown event %q from %s", env.Event, cl.userID)
	}
}

// failed reports engine errors back to the widget.
func (g *Gateway) failed(cl *client, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, session.ErrSessionNotFound) {
		cl.emit(evConnectionStatus, gin.H{"status": "error", "message": "Sesión no encontrada, por favor reconecta."})
		return true
	}
	log.Printf("event for %s failed: %v", cl.userID, err)
	cl.emit(evAIResponse, gin.H{"message": intake.Pick(intake.RespErrorGeneric)})
	return true
}

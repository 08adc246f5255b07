package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"figurachat/internal/admin"
	"figurachat/internal/auth"
)

// SessionCounter reports how many chat visitors are connected.
type SessionCounter interface {
	ActiveSessions() int
}

// Handler wires the admin panel and health routes.
type Handler struct {
	admin    *admin.Service
	auth     *auth.Service
	sessions SessionCounter
}

// NewHandler constructs a Handler instance.
func NewHandler(adminService *admin.Service, authService *auth.Service, sessions SessionCounter) *Handler {
	return &Handler{
		admin:    adminService,
		auth:     authService,
		sessions: sessions,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/health", h.health)
	api.POST("/admin/login", h.login)

	adminRoutes := api.Group("/admin")
	adminRoutes.Use(h.auth.Middleware())
	adminRoutes.POST("/logout", h.logout)
	adminRoutes.GET("/orders", h.listOrders)
	adminRoutes.GET("/orders/:id", h.getOrder)
	adminRoutes.PUT("/orders/:id", h.updateOrder)
	adminRoutes.GET("/users", h.listUsers)
	adminRoutes.POST("/users", h.createUser)
	adminRoutes.PUT("/users/:id", h.updateUser)
	adminRoutes.DELETE("/users/:id", h.deleteUser)
	adminRoutes.POST("/whatsapp-link", h.whatsAppLink)
}

func (h *Handler) health(c *gin.Context) {
	active := 0
	if h.sessions != nil {
		active = h.sessions.ActiveSessions()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"active_sessions": active,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.admin.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, admin.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}
	token, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) logout(c *gin.Context) {
	if token, ok := auth.AuthTokenFromContext(c); ok {
		if err := h.auth.RevokeToken(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	orders, err := h.admin.ListOrders(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *Handler) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := h.admin.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, admin.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load order"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) updateOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var upd admin.OrderUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	order, err := h.admin.UpdateOrder(c.Request.Context(), id, upd)
	if err != nil {
		if errors.Is(err, admin.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update order"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.admin.CreateUser(c.Request.Context(), req.Username, req.Password, req.FullName, req.Email, req.Role)
	if err != nil {
		if errors.Is(err, admin.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) updateUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var upd admin.UserUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.admin.UpdateUser(c.Request.Context(), id, upd)
	if err != nil {
		if errors.Is(err, admin.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update user"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if err := h.admin.DeleteUser(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, admin.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, admin.ErrLastAdmin):
			c.JSON(http.StatusConflict, gin.H{"error": "cannot delete the last admin account"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete user"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

type whatsAppRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (h *Handler) whatsAppLink(c *gin.Context) {
	var req whatsAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	link, err := admin.WhatsAppLink(req.Phone, req.Message)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

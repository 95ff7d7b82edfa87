// Package handler exposes the anti-abuse engine over HTTP (gin) and WebSocket.
package handler

import (
	"chatguard/backend/internal/antispam"
	"chatguard/backend/internal/chathub"
	"chatguard/backend/internal/localization"
	"chatguard/backend/internal/models"
	"chatguard/backend/internal/storage"
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Engine is the part of antispam.Service the handlers call.
type Engine interface {
	CheckSendPermission(ctx context.Context, roomID, senderEmail string) (models.Decision, error)
	PostMessage(ctx context.Context, p antispam.PostMessageParams) (*antispam.PostResult, error)
	GetStatusSummary(ctx context.Context, roomID string) (*models.UserStats, error)
	Unblock(ctx context.Context, roomID string) error
	ResetSpamScore(ctx context.Context, roomID string) error
	CreateRoom(ctx context.Context, p antispam.CreateRoomParams) (*models.ChatRoom, error)
	SetPaymentConfirmed(ctx context.Context, roomID string, confirmed bool) (*models.ChatRoom, error)
	CloseRoom(ctx context.Context, roomID string) error
	FlaggedRooms(ctx context.Context, limit int) ([]models.ChatRoom, error)
	Messages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
}

// Handler holds the dependencies of the HTTP layer.
type Handler struct {
	Engine    Engine
	Hub       *chathub.ManagerService
	Localizer *localization.Localizer
}

func NewHandler(engine Engine, hub *chathub.ManagerService, localizer *localization.Localizer) *Handler {
	return &Handler{Engine: engine, Hub: hub, Localizer: localizer}
}

// RegisterRoutes mounts every endpoint on r. Admin routes require a bearer token
// signed with adminSecret.
func (h *Handler) RegisterRoutes(r gin.IRouter, adminSecret []byte) {
	api := r.Group("/api")
	api.POST("/chat/check", h.CheckSendPermission)
	api.GET("/rooms/:room_id/status", h.GetStatusSummary)
	api.POST("/rooms/:room_id/messages", h.PostClientMessage)
	api.GET("/rooms/:room_id/messages", h.ListMessages)

	admin := api.Group("/admin", AdminAuth(adminSecret))
	admin.POST("/rooms", h.CreateRoom)
	admin.GET("/rooms/flagged", h.FlaggedRooms)
	admin.PUT("/rooms/:room_id/payment", h.SetPayment)
	admin.POST("/rooms/:room_id/close", h.CloseRoom)
	admin.POST("/rooms/:room_id/unblock", h.Unblock)
	admin.POST("/rooms/:room_id/reset-spam", h.ResetSpamScore)
	admin.POST("/rooms/:room_id/messages", h.PostAdminMessage)

	r.GET("/ws", h.ServeWebSocket)
}

type checkRequest struct {
	RoomID    string `json:"room_id" binding:"required"`
	UserEmail string `json:"user_email" binding:"required"`
}

// decisionResponse is a Decision with the localized text of its reason.
type decisionResponse struct {
	models.Decision
	Message string `json:"message,omitempty"`
}

func (h *Handler) toResponse(c *gin.Context, d models.Decision) decisionResponse {
	resp := decisionResponse{Decision: d}
	if !d.Allowed && h.Localizer != nil {
		lang := h.Localizer.PickLanguage(c.GetHeader("Accept-Language"))
		resp.Message = h.Localizer.DenialMessage(lang, d.Reason, d.RetryAfter)
	}
	return resp
}

// CheckSendPermission answers whether the client may send right now.
// A denial is a normal 200 response with allowed=false.
func (h *Handler) CheckSendPermission(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id and user_email are required"})
		return
	}

	d, err := h.Engine.CheckSendPermission(c.Request.Context(), req.RoomID, req.UserEmail)
	if err != nil {
		h.respondError(c, err, "check rate limit")
		return
	}
	c.JSON(http.StatusOK, h.toResponse(c, d))
}

func (h *Handler) GetStatusSummary(c *gin.Context) {
	stats, err := h.Engine.GetStatusSummary(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		h.respondError(c, err, "get status summary")
		return
	}
	c.JSON(http.StatusOK, stats)
}

type postMessageRequest struct {
	SenderEmail string `json:"sender_email"`
	Content     string `json:"content"`
	FileName    string `json:"file_name"`
	FilePath    string `json:"file_path"`
	FileSize    int64  `json:"file_size"`
}

type postMessageResponse struct {
	decisionResponse
	Data *models.Message `json:"data,omitempty"`
}

// PostClientMessage stores a client message if the policy allows it.
// Denials answer 429 when they expire on their own and 403 otherwise.
func (h *Handler) PostClientMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.postMessage(c, req, models.SenderTypeClient)
}

// PostAdminMessage stores a staff reply. The sender defaults to the token subject.
func (h *Handler) PostAdminMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SenderEmail == "" {
		req.SenderEmail = c.GetString(adminIDKey)
	}
	h.postMessage(c, req, models.SenderTypeAdmin)
}

func (h *Handler) postMessage(c *gin.Context, req postMessageRequest, senderType string) {
	res, err := h.Engine.PostMessage(c.Request.Context(), antispam.PostMessageParams{
		RoomID:      c.Param("room_id"),
		SenderEmail: req.SenderEmail,
		SenderType:  senderType,
		Content:     req.Content,
		FileName:    req.FileName,
		FilePath:    req.FilePath,
		FileSize:    req.FileSize,
	})
	if err != nil {
		h.respondError(c, err, "post message")
		return
	}

	resp := postMessageResponse{decisionResponse: h.toResponse(c, res.Decision), Data: res.Message}
	switch {
	case res.Decision.Allowed:
		c.JSON(http.StatusCreated, resp)
	case res.Decision.TimeBounded():
		c.Header("Retry-After", strconv.FormatInt(*res.Decision.RetryAfter, 10))
		c.JSON(http.StatusTooManyRequests, resp)
	default:
		c.JSON(http.StatusForbidden, resp)
	}
}

func (h *Handler) ListMessages(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	msgs, err := h.Engine.Messages(c.Request.Context(), c.Param("room_id"), limit)
	if err != nil {
		h.respondError(c, err, "list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": msgs})
}

func (h *Handler) Unblock(c *gin.Context) {
	if err := h.Engine.Unblock(c.Request.Context(), c.Param("room_id")); err != nil {
		h.respondError(c, err, "unblock room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ResetSpamScore(c *gin.Context) {
	if err := h.Engine.ResetSpamScore(c.Request.Context(), c.Param("room_id")); err != nil {
		h.respondError(c, err, "reset spam score")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type createRoomRequest struct {
	OrderID          string   `json:"order_id" binding:"required"`
	ClientEmail      string   `json:"client_email" binding:"required"`
	ClientName       string   `json:"client_name"`
	ServiceType      string   `json:"service_type"`
	ScreeningTags    []string `json:"screening_tags"`
	PaymentConfirmed bool     `json:"payment_confirmed"`
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id and client_email are required"})
		return
	}
	room, err := h.Engine.CreateRoom(c.Request.Context(), antispam.CreateRoomParams{
		OrderID:          req.OrderID,
		ClientEmail:      req.ClientEmail,
		ClientName:       req.ClientName,
		ServiceType:      req.ServiceType,
		ScreeningTags:    req.ScreeningTags,
		PaymentConfirmed: req.PaymentConfirmed,
	})
	if err != nil {
		h.respondError(c, err, "create room")
		return
	}
	c.JSON(http.StatusCreated, room)
}

type paymentRequest struct {
	Confirmed *bool `json:"confirmed" binding:"required"`
}

func (h *Handler) SetPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmed is required"})
		return
	}
	room, err := h.Engine.SetPaymentConfirmed(c.Request.Context(), c.Param("room_id"), *req.Confirmed)
	if err != nil {
		h.respondError(c, err, "update payment")
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handler) CloseRoom(c *gin.Context) {
	if err := h.Engine.CloseRoom(c.Request.Context(), c.Param("room_id")); err != nil {
		h.respondError(c, err, "close room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) FlaggedRooms(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	rooms, err := h.Engine.FlaggedRooms(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err, "list flagged rooms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rooms})
}

// queryLimit parses ?limit=; 0 means no limit.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return limit, true
}

// respondError maps engine errors to HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, antispam.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "chat room not found"})
	case errors.Is(err, antispam.ErrInvalidSender):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, antispam.ErrInvalidMessage), errors.Is(err, antispam.ErrInvalidRoom):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case storage.IsStorageError(err):
		log.Printf("ERROR: Failed to %s: %v", op, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to " + op})
	default:
		log.Printf("ERROR: Unexpected error on %s: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

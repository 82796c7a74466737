package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/folioserve/folio-live/internal/audit"
	"github.com/folioserve/folio-live/internal/domain"
	"github.com/folioserve/folio-live/internal/service"
	"github.com/folioserve/folio-live/pkg/log"
	"github.com/folioserve/folio-live/pkg/middleware"
	"github.com/folioserve/folio-live/pkg/response"
	"github.com/folioserve/folio-live/pkg/storage"
)

// Handler owns the REST surface of the CMS.
type Handler struct {
	projects      *service.Content[domain.Project]
	skills        *service.Content[domain.Skill]
	certificates  *service.Content[domain.Certificate]
	contact       *service.Content[domain.ContactMessage]
	notifications *service.Content[domain.Notification]
	about         *service.AboutService
	auth          *service.AuthService
	uploads       storage.Storage
	authMW        *middleware.AuthMiddleware
	ws            *WSHandler
}

// NewHandler wires the REST surface.
func NewHandler(
	projects *service.Content[domain.Project],
	skills *service.Content[domain.Skill],
	certificates *service.Content[domain.Certificate],
	contact *service.Content[domain.ContactMessage],
	notifications *service.Content[domain.Notification],
	about *service.AboutService,
	auth *service.AuthService,
	uploads storage.Storage,
	authMW *middleware.AuthMiddleware,
	ws *WSHandler,
) *Handler {
	return &Handler{
		projects:      projects,
		skills:        skills,
		certificates:  certificates,
		contact:       contact,
		notifications: notifications,
		about:         about,
		auth:          auth,
		uploads:       uploads,
		authMW:        authMW,
		ws:            ws,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	requireAuth := h.authMW.RequireAuth()

	r.GET("/ws", h.ws.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		registerContent(api.Group("/projects"), h.projects, requireAuth)
		registerContent(api.Group("/skills"), h.skills, requireAuth)
		registerContent(api.Group("/certificates"), h.certificates, requireAuth)

		api.GET("/about", h.GetAbout)
		api.PUT("/about", requireAuth, h.UpdateAbout)

		contact := api.Group("/contact")
		{
			contact.POST("", h.PostContactMessage)
			contact.GET("", requireAuth, h.ListContactMessages)
			contact.PUT("/:id/read", requireAuth, h.MarkContactMessageRead)
			contact.DELETE("/:id", requireAuth, h.DeleteContactMessage)
		}

		notifications := api.Group("/notifications", requireAuth)
		{
			notifications.GET("", h.ListNotifications)
			notifications.DELETE("/:id", h.DeleteNotification)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/login", h.Login)
			auth.POST("/refresh", h.Refresh)
		}

		api.POST("/uploads", requireAuth, h.Upload)
	}
}

// GetAbout returns the about document.
func (h *Handler) GetAbout(c *gin.Context) {
	ctx := c.Request.Context()

	about, err := h.about.Get(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to get about")
		response.InternalError(c, "failed to get about")
		return
	}
	response.Success(c, about)
}

// UpdateAbout replaces the about document.
func (h *Handler) UpdateAbout(c *gin.Context) {
	ctx := c.Request.Context()

	var about domain.About
	if err := c.ShouldBindJSON(&about); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	updated, err := h.about.Update(ctx, about)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to update about")
		response.InternalError(c, "failed to update about")
		return
	}
	response.Success(c, updated)
}

// PostContactMessage accepts a public contact form submission. Besides
// the contact-room broadcast, a notification is persisted for the
// admin dashboard.
func (h *Handler) PostContactMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var msg domain.ContactMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg.Read = false

	created, err := h.contact.Create(ctx, msg)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to store contact message")
		response.InternalError(c, "failed to send message")
		return
	}

	audit.LogWithDetail(ctx, audit.ActionContactReceive, created.Email, "contact message received")

	if _, err := h.notifications.Create(ctx, domain.Notification{
		Type:    "contact",
		Action:  "created",
		Message: fmt.Sprintf("new message from %s", created.Name),
	}); err != nil {
		// Notification persistence is best-effort; the message itself
		// is already stored.
		log.Ctx(ctx).Warn().Err(err).Msg("failed to persist contact notification")
	}

	response.Created(c, created)
}

// ListContactMessages lists contact messages for the admin dashboard.
func (h *Handler) ListContactMessages(c *gin.Context) {
	ctx := c.Request.Context()

	msgs, err := h.contact.List(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list contact messages")
		response.InternalError(c, "failed to list messages")
		return
	}
	response.Success(c, msgs)
}

// MarkContactMessageRead flips the read flag.
func (h *Handler) MarkContactMessageRead(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	msg, err := h.contact.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(c, "message not found")
			return
		}
		response.InternalError(c, "failed to get message")
		return
	}

	msg.Read = true
	updated, err := h.contact.Update(ctx, id, msg)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to mark message read")
		response.InternalError(c, "failed to update message")
		return
	}
	response.Success(c, updated)
}

// DeleteContactMessage removes a contact message.
func (h *Handler) DeleteContactMessage(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.contact.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(c, "message not found")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to delete contact message")
		response.InternalError(c, "failed to delete message")
		return
	}
	response.Success(c, gin.H{"deleted": c.Param("id")})
}

// ListNotifications lists persisted operator notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := h.notifications.List(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list notifications")
		response.InternalError(c, "failed to list notifications")
		return
	}
	response.Success(c, items)
}

// DeleteNotification dismisses one notification.
func (h *Handler) DeleteNotification(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.notifications.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(c, "notification not found")
			return
		}
		response.InternalError(c, "failed to delete notification")
		return
	}
	response.Success(c, gin.H{"deleted": c.Param("id")})
}

// Login authenticates an admin account.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("login failed")
		response.InternalError(c, "login failed")
		return
	}
	response.Success(c, resp)
}

// Refresh exchanges a refresh token for a new pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "invalid refresh token")
		return
	}
	response.Success(c, pair)
}

const maxUploadSize = 10 << 20 // 10 MiB

// Upload stores an image for a project or certificate and returns its
// serving URL.
func (h *Handler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file field")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		response.BadRequest(c, "file too large")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	key := fmt.Sprintf("images/%s%s", uuid.New().String(), ext)
	contentType := header.Header.Get("Content-Type")

	if err := h.uploads.Write(ctx, key, file, header.Size, contentType); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to store upload")
		response.InternalError(c, "failed to store upload")
		return
	}

	url, err := h.uploads.GetURL(ctx, key, 24*time.Hour)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to resolve upload url")
		response.InternalError(c, "failed to resolve upload url")
		return
	}

	audit.Log(ctx, audit.ActionUpload, "uploads", key, "file uploaded")
	response.Created(c, gin.H{"key": key, "url": url})
}

// CORS allows the admin dashboard and public site, which are served
// from other origins, to call the API.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		_, ok := allowed[strings.TrimSuffix(origin, "/")]
		if _, any := allowed["*"]; any {
			ok = true
		}
		if ok {
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Max-Age", "600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	authdelivery "inboxhub-backend/internal/auth/delivery"
	conndomain "inboxhub-backend/internal/connection/domain"
	"inboxhub-backend/internal/email/domain"
	"inboxhub-backend/internal/email/usecase"
)

type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
}

func NewEmailHandler(emailUsecase usecase.EmailUsecase) *EmailHandler {
	return &EmailHandler{
		emailUsecase: emailUsecase,
	}
}

func (h *EmailHandler) Sync(c *gin.Context) {
	provider := conndomain.Provider(c.Param("provider"))
	userID := authdelivery.UserID(c)

	result, err := h.emailUsecase.Sync(c.Request.Context(), userID, provider)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
		case errors.Is(err, conndomain.ErrReauthRequired):
			c.JSON(http.StatusForbidden, gin.H{"error": "reauthorization required"})
		case errors.Is(err, conndomain.ErrConnectionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *EmailHandler) ListThreads(c *gin.Context) {
	userID := authdelivery.UserID(c)

	filter := domain.ThreadFilter{
		Label:      c.Query("label"),
		UnreadOnly: c.Query("unread") == "true",
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			filter.Offset = parsed
		}
	}

	threads, err := h.emailUsecase.ListThreads(userID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

func (h *EmailHandler) GetThread(c *gin.Context) {
	provider := conndomain.Provider(c.Param("provider"))
	threadID := c.Param("thread_id")
	userID := authdelivery.UserID(c)

	thread, messages, err := h.emailUsecase.GetThread(userID, provider, threadID)
	if err != nil {
		if errors.Is(err, domain.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"thread": thread, "messages": messages})
}

func (h *EmailHandler) MarkThreadAsRead(c *gin.Context) {
	provider := conndomain.Provider(c.Param("provider"))
	threadID := c.Param("thread_id")
	userID := authdelivery.UserID(c)

	thread, err := h.emailUsecase.MarkThreadRead(userID, provider, threadID)
	if err != nil {
		if errors.Is(err, domain.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, thread)
}

func (h *EmailHandler) MarkAsRead(c *gin.Context) {
	h.setRead(c, true)
}

func (h *EmailHandler) MarkAsUnread(c *gin.Context) {
	h.setRead(c, false)
}

func (h *EmailHandler) setRead(c *gin.Context, read bool) {
	id := c.Param("id")
	userID := authdelivery.UserID(c)

	msg, err := h.emailUsecase.MarkRead(userID, id, read)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, msg)
}

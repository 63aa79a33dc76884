package delivery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authdelivery "inboxhub-backend/internal/auth/delivery"
	"inboxhub-backend/internal/connection/domain"
	"inboxhub-backend/internal/connection/usecase"
)

type ConnectionHandler struct {
	connUsecase usecase.ConnectionUsecase
}

func NewConnectionHandler(connUsecase usecase.ConnectionUsecase) *ConnectionHandler {
	return &ConnectionHandler{
		connUsecase: connUsecase,
	}
}

// Authorize returns the provider consent URL. The authenticated user id rides
// in the OAuth state so the callback can attribute the grant.
func (h *ConnectionHandler) Authorize(c *gin.Context) {
	provider := domain.Provider(c.Param("provider"))
	userID := authdelivery.UserID(c)

	url, err := h.connUsecase.AuthorizationURL(provider, userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorization_url": url})
}

// Callback completes the OAuth redirect from the provider. Unauthenticated;
// the state parameter identifies the user.
func (h *ConnectionHandler) Callback(c *gin.Context) {
	provider := domain.Provider(c.Param("provider"))
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and state are required"})
		return
	}

	conn, err := h.connUsecase.HandleCallback(c.Request.Context(), state, provider, code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, conn)
}

func (h *ConnectionHandler) Status(c *gin.Context) {
	provider := domain.Provider(c.Param("provider"))
	userID := authdelivery.UserID(c)

	status, err := h.connUsecase.Status(userID, provider)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"provider": provider, "status": status})
}

func (h *ConnectionHandler) List(c *gin.Context) {
	userID := authdelivery.UserID(c)

	connections, err := h.connUsecase.List(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"connections": connections})
}

func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	provider := domain.Provider(c.Param("provider"))
	userID := authdelivery.UserID(c)

	if err := h.connUsecase.Disconnect(c.Request.Context(), userID, provider); err != nil {
		if errors.Is(err, domain.ErrConnectionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "disconnected"})
}

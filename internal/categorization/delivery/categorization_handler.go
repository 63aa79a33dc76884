package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	authdelivery "inboxhub-backend/internal/auth/delivery"
	"inboxhub-backend/internal/categorization/domain"
	"inboxhub-backend/internal/categorization/usecase"
)

type CategorizationHandler struct {
	catUsecase usecase.CategorizationUsecase
}

func NewCategorizationHandler(catUsecase usecase.CategorizationUsecase) *CategorizationHandler {
	return &CategorizationHandler{
		catUsecase: catUsecase,
	}
}

// Run processes uncategorized messages for the authenticated user. With
// all=true it drains the whole backlog; otherwise one batch.
func (h *CategorizationHandler) Run(c *gin.Context) {
	userID := authdelivery.UserID(c)

	if c.Query("all") == "true" {
		result, err := h.catUsecase.CategorizeAll(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	result, err := h.catUsecase.CategorizeBatch(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CategorizationHandler) GetPrompt(c *gin.Context) {
	userID := authdelivery.UserID(c)

	config, err := h.catUsecase.GetPromptConfig(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, config)
}

func (h *CategorizationHandler) UpdatePrompt(c *gin.Context) {
	userID := authdelivery.UserID(c)

	var update usecase.PromptUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	config, err := h.catUsecase.UpdatePromptConfig(userID, update)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "template must contain {subject}, {sender} and {content}"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, config)
}

func (h *CategorizationHandler) ResetPrompt(c *gin.Context) {
	userID := authdelivery.UserID(c)

	config, err := h.catUsecase.ResetPromptConfig(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, config)
}

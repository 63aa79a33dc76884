package api

import (
	authUsecase "inboxhub-backend/internal/auth/usecase"
	catUsecase "inboxhub-backend/internal/categorization/usecase"
	connUsecase "inboxhub-backend/internal/connection/usecase"
	emailUsecase "inboxhub-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase  authUsecase.AuthUsecase
	connUsecase  connUsecase.ConnectionUsecase
	emailUsecase emailUsecase.EmailUsecase
	catUsecase   catUsecase.CategorizationUsecase
}

func NewHandler(authUc authUsecase.AuthUsecase, connUc connUsecase.ConnectionUsecase, emailUc emailUsecase.EmailUsecase, catUc catUsecase.CategorizationUsecase) *Handler {
	return &Handler{
		authUsecase:  authUc,
		connUsecase:  connUc,
		emailUsecase: emailUc,
		catUsecase:   catUc,
	}
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.connUsecase, h.emailUsecase, h.catUsecase)

	return r.Run(addr)
}

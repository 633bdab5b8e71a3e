package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/core"
)

// envelope is the response shape shared by all endpoints
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// failWith maps service errors to a status and a message the client can show
func failWith(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, core.ErrInvalidAddress):
		fail(c, http.StatusBadRequest, "Invalid wallet address")
	case errors.Is(err, core.ErrInvalidChallenge):
		fail(c, http.StatusBadRequest, "Login message expired or already used")
	case errors.Is(err, core.ErrInvalidUsername):
		fail(c, http.StatusBadRequest, "Username must be 3 to 32 characters")
	case errors.Is(err, core.ErrInvalidSignature):
		fail(c, http.StatusUnauthorized, "Invalid signature")
	case errors.Is(err, core.ErrUserExists):
		fail(c, http.StatusConflict, "Wallet already registered")
	case errors.Is(err, core.ErrChainUnavailable):
		fail(c, http.StatusServiceUnavailable, "Chain access is not configured")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, fallback)
	}
}

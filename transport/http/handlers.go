package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/service"
	"github.com/rs/zerolog"
)

// AuthHandlers contains HTTP handlers for wallet and auth endpoints
type AuthHandlers struct {
	authService  *service.AuthService
	cookieSecure bool
	logger       zerolog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookieSecure bool, logger zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService:  authService,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// LoginMessage issues a fresh message for the wallet to sign
func (h *AuthHandlers) LoginMessage(c *gin.Context) {
	challenge, err := h.authService.CreateChallenge(c.Request.Context())
	if err != nil {
		failWith(c, err, "Failed to create login message")
		return
	}
	ok(c, string(challenge.Message))
}

// WalletLogin exchanges a signed login message for a session
func (h *AuthHandlers) WalletLogin(c *gin.Context) {
	var req core.WalletLogin
	if err := c.ShouldBindJSON(&req); err != nil || req.Signature == "" || req.Message == "" {
		fail(c, http.StatusBadRequest, "Invalid request")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		failWith(c, err, "Authentication failed")
		return
	}

	h.setTokenCookie(c, result.AccessToken, h.authService.AccessTTL())
	ok(c, result.User)
}

// WalletRegister creates a user from a signed login message and a chosen username
func (h *AuthHandlers) WalletRegister(c *gin.Context) {
	var req core.WalletRegistration
	if err := c.ShouldBindJSON(&req); err != nil || req.Signature == "" || req.Message == "" {
		fail(c, http.StatusBadRequest, "Invalid request")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		failWith(c, err, "Registration failed")
		return
	}

	h.setTokenCookie(c, result.AccessToken, h.authService.AccessTTL())
	ok(c, result.User)
}

// Logout invalidates the session if there is one. It always succeeds.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if token := accessToken(c); token != "" {
		if err := h.authService.Logout(c.Request.Context(), token); err != nil {
			h.logger.Debug().Err(err).Msg("logout with unusable token")
		}
	}

	h.setTokenCookie(c, "", -1)
	c.JSON(http.StatusOK, envelope{Success: true, Message: "Logged out"})
}

// Me returns the logged in user, or null data when there is none
func (h *AuthHandlers) Me(c *gin.Context) {
	token := accessToken(c)
	if token == "" {
		ok(c, nil)
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), token)
	switch {
	case err == nil:
		ok(c, user)
	case errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrTokenInvalidated),
		errors.Is(err, core.ErrUserNotFound):
		ok(c, nil)
	default:
		failWith(c, err, "Failed to load user")
	}
}

// ValidateAddress reports whether the address query parameter is well formed
func (h *AuthHandlers) ValidateAddress(c *gin.Context) {
	ok(c, h.authService.ValidateAddress(c.Query("address")))
}

// ChecksumAddress returns the EIP-55 form of the address query parameter
func (h *AuthHandlers) ChecksumAddress(c *gin.Context) {
	address, err := h.authService.ChecksumAddress(c.Query("address"))
	if err != nil {
		failWith(c, err, "Failed to checksum address")
		return
	}
	ok(c, address)
}

// Balance returns the ether balance of the address query parameter
func (h *AuthHandlers) Balance(c *gin.Context) {
	balance, err := h.authService.Balance(c.Request.Context(), c.Query("address"))
	if err != nil {
		failWith(c, err, "Failed to read balance")
		return
	}
	ok(c, balance.String())
}

// setTokenCookie sets or, with a negative ttl, clears the access token cookie
func (h *AuthHandlers) setTokenCookie(c *gin.Context, token string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, token, maxAge, "/", "", h.cookieSecure, true)
}

package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/service"
	"github.com/rs/zerolog"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, cookieSecure bool, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), TokenMiddleware())

	// Create handlers
	handlers := NewAuthHandlers(authService, cookieSecure, logger)

	api := router.Group("/api")

	wallet := api.Group("/wallet")
	{
		wallet.GET("/login-message", handlers.LoginMessage)
		wallet.POST("/login", handlers.WalletLogin)
		wallet.GET("/validate-address", handlers.ValidateAddress)
		wallet.GET("/checksum-address", handlers.ChecksumAddress)
		wallet.GET("/balance", handlers.Balance)
	}

	auth := api.Group("/auth")
	{
		auth.POST("/wallet-register", handlers.WalletRegister)
		auth.POST("/logout", handlers.Logout)
		auth.GET("/me", handlers.Me)
	}

	return router
}

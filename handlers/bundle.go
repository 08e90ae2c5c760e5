// File: broadway/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Chat endpoints
	ChatTurnHandler    gin.HandlerFunc
	ChatVoiceHandler   gin.HandlerFunc
	ChatCartHandler    gin.HandlerFunc
	ChatHistoryHandler gin.HandlerFunc
	ChatResetHandler   gin.HandlerFunc

	// Catalog endpoints
	MenuHandler       gin.HandlerFunc
	CategoriesHandler gin.HandlerFunc
	DealsHandler      gin.HandlerFunc
	InfoHandler       gin.HandlerFunc

	// Order endpoints
	GetOrderHandler gin.HandlerFunc
}

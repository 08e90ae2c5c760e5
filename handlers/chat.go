package handlers

import (
	"net/http"
	"strings"

	"broadway/models"
	ai "broadway/services/intelligence"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler serves the chat widget.
type ChatHandler struct {
	chat     ai.ChatService
	currency string
}

func NewChatHandler(chat ai.ChatService, currency string) *ChatHandler {
	return &ChatHandler{chat: chat, currency: currency}
}

// TurnHandler processes one typed utterance.
func (h *ChatHandler) TurnHandler(c *gin.Context) {
	logger := getLogger(c)

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	h.runTurn(c, req)
}

func (h *ChatHandler) runTurn(c *gin.Context, req models.ChatRequest) {
	resp, err := h.chat.ProcessTurn(c.Request.Context(), req)
	if err != nil {
		respondError(c, "invalid chat request", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CartHandler returns the committed cart and checkout stage for a session.
func (h *ChatHandler) CartHandler(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("sessionID"))
	st, err := h.chat.Cart(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, "failed to load cart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": st.SessionID,
		"stage":      st.Stage,
		"cart":       models.NewCartView(st.Cart, h.currency),
	})
}

func (h *ChatHandler) HistoryHandler(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("sessionID"))
	msgs, err := h.chat.History(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, "failed to load history", err)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "messages": msgs})
}

// ResetHandler drops the session's state and transcript.
func (h *ChatHandler) ResetHandler(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("sessionID"))
	if err := h.chat.Reset(c.Request.Context(), sessionID); err != nil {
		respondError(c, "failed to reset session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session cleared"})
}

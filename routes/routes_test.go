package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"broadway/handlers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func named(name string) gin.HandlerFunc {
	return func(c *gin.Context) { c.String(http.StatusOK, name) }
}

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, &handlers.HandlerBundle{
		ChatTurnHandler:    named("turn"),
		ChatVoiceHandler:   named("voice"),
		ChatCartHandler:    named("cart"),
		ChatHistoryHandler: named("history"),
		ChatResetHandler:   named("reset"),
		MenuHandler:        named("menu"),
		CategoriesHandler:  named("categories"),
		DealsHandler:       named("deals"),
		InfoHandler:        named("info"),
		GetOrderHandler:    named("order"),
	})

	cases := []struct{ method, path, want string }{
		{http.MethodPost, "/api/chat/turn", "turn"},
		{http.MethodPost, "/api/chat/voice", "voice"},
		{http.MethodGet, "/api/chat/abc/cart", "cart"},
		{http.MethodGet, "/api/chat/abc/history", "history"},
		{http.MethodDelete, "/api/chat/abc", "reset"},
		{http.MethodGet, "/api/menu", "menu"},
		{http.MethodGet, "/api/menu/categories", "categories"},
		{http.MethodGet, "/api/deals", "deals"},
		{http.MethodGet, "/api/info", "info"},
		{http.MethodGet, "/api/orders/12", "order"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusOK, w.Code, tc.path)
		assert.Equal(t, tc.want, w.Body.String(), tc.path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

package handlers

import (
	"net/http"
	"strconv"

	ordersRepo "broadway/database/repository/orders"
	"broadway/models"

	"github.com/gin-gonic/gin"
)

// OrderHandler serves placed orders from the ledger.
type OrderHandler struct {
	orders ordersRepo.OrderRepository
}

func NewOrderHandler(repo ordersRepo.OrderRepository) *OrderHandler {
	return &OrderHandler{orders: repo}
}

// GetOrderHandler returns the confirmation view of one order; the phone stays masked.
func (h *OrderHandler) GetOrderHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, "invalid order id", &models.ValidationError{Field: "id", Reason: "order id must be a positive number"})
		return
	}
	order, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to load order", err)
		return
	}
	c.JSON(http.StatusOK, order.Confirmation())
}

package handlers

import (
	"errors"
	"net/http"

	"broadway/models"
	"broadway/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger retrieves the request-scoped Zap logger from the Gin context or falls back to the global one.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get(utils.RequestLoggerKey); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return utils.GetLogger()
}

// respondError maps a domain error onto an HTTP status and writes it.
func respondError(c *gin.Context, message string, err error) {
	var (
		nf *models.NotFoundError
		ve *models.ValidationError
		ue *models.UpstreamError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &nf):
		status = http.StatusNotFound
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.As(err, &ue):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		getLogger(c).Error(message, zap.Error(err))
		utils.JSONError(c, status, message, "")
		return
	}
	utils.JSONError(c, status, message, err.Error())
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"savora/internal/app"
	"savora/internal/transport/http/response"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrConflict),
		errors.Is(err, app.ErrInvalidCredential):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps service errors to statuses. Internal failures are logged
// and answered with fallback only.
func writeError(c *gin.Context, log logrus.FieldLogger, err error, fallback string) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error(fallback)
		response.Error(c, status, fallback)
		return
	}
	response.Error(c, status, app.PublicMessage(err, fallback))
}

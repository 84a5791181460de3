package handler

import (
	"errors"
	"net/http"
	"strconv"

	"what-to-do/internal/calendar"
	"what-to-do/internal/logger"
	"what-to-do/internal/service"

	"github.com/gin-gonic/gin"
)

// fail maps service errors to a status code and a {"error": ...} body.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidIntensity),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidTime),
		errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrNothingToSummarize),
		errors.Is(err, service.ErrUnknownFormat),
		errors.Is(err, calendar.ErrInvertedRange):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrBadCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrUserExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrSummarizer):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Ctx(c.Request.Context()).Error("http.error", "path", c.FullPath(), "err", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func uid(c *gin.Context) int { return c.GetInt("user_id") }

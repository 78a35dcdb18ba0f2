package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learning-journal/internal/logger"
	"github.com/iliyamo/learning-journal/internal/service"
)

// Flash levels.
const (
	levelSuccess = "success"
	levelInfo    = "info"
	levelError   = "error"
)

const requestTimeout = 5 * time.Second

// flash is the user-facing message attached to every JSON response.
type flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// reply writes body with a flash message merged in.
func reply(c echo.Context, status int, level, message string, body echo.Map) error {
	if body == nil {
		body = echo.Map{}
	}
	if message != "" {
		body["flash"] = flash{Level: level, Message: message}
	}
	return c.JSON(status, body)
}

// fail maps a service error onto an HTTP response.  Storage failures are
// reported with a generic message; their cause was already logged.
func fail(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		logger.Error("unhandled handler error", "err", err)
		return reply(c, http.StatusInternalServerError, levelError, service.MsgStorage, nil)
	}
	switch se.Kind {
	case service.KindValidation:
		body := echo.Map{}
		if se.Field != "" {
			body["field"] = se.Field
		}
		return reply(c, http.StatusBadRequest, levelError, se.Message, body)
	case service.KindNotFound:
		return reply(c, http.StatusNotFound, levelError, "Not found", nil)
	case service.KindConflict:
		return reply(c, http.StatusConflict, levelError, se.Message, nil)
	case service.KindAuthentication:
		return reply(c, http.StatusUnauthorized, levelError, se.Message, nil)
	case service.KindUnauthenticated:
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	return reply(c, http.StatusInternalServerError, levelError, service.MsgStorage, nil)
}

// pathID parses the :id route parameter.  A malformed id cannot name a row
// the user owns, so it is reported as not found.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func notFound(c echo.Context) error {
	return reply(c, http.StatusNotFound, levelError, "Not found", nil)
}

func badBody(c echo.Context) error {
	return reply(c, http.StatusBadRequest, levelError, "invalid request body", nil)
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

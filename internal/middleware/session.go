package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learning-journal/internal/logger"
	"github.com/iliyamo/learning-journal/internal/session"
)

// Cookie describes the session cookie.
type Cookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Set writes the session cookie carrying token.
func (ck Cookie) Set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     ck.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ck.TTL.Seconds()),
		HttpOnly: true,
		Secure:   ck.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie in the browser.
func (ck Cookie) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     ck.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ck.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session resolves the session cookie into a Principal for every request.
// Requests without a live session continue as anonymous; a stale cookie is
// cleared.  A live session has its cookie refreshed so the browser expiry
// slides along with the server-side record.
func Session(m *session.Manager, ck Cookie) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := c.Cookie(ck.Name)
			if err != nil || raw.Value == "" {
				SetPrincipal(c, session.Anonymous)
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			p, err := m.Resolve(ctx, raw.Value)
			cancel()
			if err != nil {
				logger.Error("failed to resolve session", "err", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"flash": echo.Map{"level": "error", "message": "Something went wrong. Please try again later."},
				})
			}

			if p.Authenticated() {
				ck.Set(c, raw.Value)
			} else {
				ck.Clear(c)
			}
			SetPrincipal(c, p)
			return next(c)
		}
	}
}

// RequireSession sends anonymous requests to the login page.
func RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !PrincipalFrom(c).Authenticated() {
				return c.Redirect(http.StatusSeeOther, "/login")
			}
			return next(c)
		}
	}
}

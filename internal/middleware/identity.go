package middleware

// identity.go holds the helpers that move the resolved Principal through the
// Echo context.  Handlers read the principal with PrincipalFrom; it is the
// only source of the acting user's id.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learning-journal/internal/session"
)

const principalKey = "principal"

// SetPrincipal stores p on the request context.
func SetPrincipal(c echo.Context, p session.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the principal resolved for this request, or
// Anonymous when none was set.
func PrincipalFrom(c echo.Context) session.Principal {
	if p, ok := c.Get(principalKey).(session.Principal); ok {
		return p
	}
	return session.Anonymous
}

// userID returns a printable user identifier for logs.  It returns "guest"
// when no user is authenticated.
func userID(c echo.Context) string {
	p := PrincipalFrom(c)
	if !p.Authenticated() {
		return "guest"
	}
	return strconv.FormatUint(p.UserID, 10)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learning-journal/internal/middleware"
	"github.com/iliyamo/learning-journal/internal/model"
	"github.com/iliyamo/learning-journal/internal/service"
)

// AuthHandler serves the home, login, register and logout endpoints.
type AuthHandler struct {
	Svc    *service.Service
	Cookie middleware.Cookie
}

func NewAuthHandler(svc *service.Service, ck middleware.Cookie) *AuthHandler {
	return &AuthHandler{Svc: svc, Cookie: ck}
}

type userPart struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username, Email: u.Email}
}

// Home describes the service and whether the caller is signed in.
func (h *AuthHandler) Home(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	return c.JSON(http.StatusOK, echo.Map{
		"service":       "learning-journal",
		"authenticated": p.Authenticated(),
	})
}

// LoginPage tells a signed-in user to go to the journal.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	if middleware.PrincipalFrom(c).Authenticated() {
		return c.Redirect(http.StatusSeeOther, "/journal")
	}
	return c.JSON(http.StatusOK, echo.Map{"page": "login"})
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var in service.LoginInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Svc.Login(ctx, middleware.PrincipalFrom(c), in)
	if err != nil {
		return fail(c, err)
	}
	h.Cookie.Set(c, res.Token)
	return reply(c, http.StatusOK, levelSuccess, "Welcome back!", echo.Map{"user": toUserPart(res.User)})
}

// RegisterPage tells a signed-in user to go to the journal.
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	if middleware.PrincipalFrom(c).Authenticated() {
		return c.Redirect(http.StatusSeeOther, "/journal")
	}
	return c.JSON(http.StatusOK, echo.Map{"page": "register"})
}

// Register creates an account and, when auto-login is on, signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Svc.Register(ctx, in)
	if err != nil {
		if res.User.ID == 0 {
			return fail(c, err)
		}
		// account exists but no session: the user logs in by hand
		return reply(c, http.StatusCreated, levelInfo, "Registration successful! Please log in.", echo.Map{"user": toUserPart(res.User)})
	}
	msg := "Registration successful! Please log in."
	if res.Token != "" {
		h.Cookie.Set(c, res.Token)
		msg = "Registration successful! You can now start adding journal entries."
	}
	return reply(c, http.StatusCreated, levelSuccess, msg, echo.Map{"user": toUserPart(res.User)})
}

// Logout destroys the session and clears the cookie.  It succeeds for
// anonymous callers too.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Svc.Logout(ctx, middleware.PrincipalFrom(c)); err != nil {
		return fail(c, err)
	}
	h.Cookie.Clear(c)
	return reply(c, http.StatusOK, levelInfo, "You have been logged out", nil)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learning-journal/internal/middleware"
	"github.com/iliyamo/learning-journal/internal/service"
)

// ProfileHandler serves the signed-in user's own account.
type ProfileHandler struct {
	Svc *service.Service
}

func NewProfileHandler(svc *service.Service) *ProfileHandler {
	return &ProfileHandler{Svc: svc}
}

// Show returns the caller's profile.
func (h *ProfileHandler) Show(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Svc.GetProfile(ctx, middleware.PrincipalFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// Update changes the caller's profile and, optionally, password.
func (h *ProfileHandler) Update(c echo.Context) error {
	var in service.ProfileInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Svc.UpdateProfile(ctx, middleware.PrincipalFrom(c), in)
	if err != nil {
		return fail(c, err)
	}
	return reply(c, http.StatusOK, levelSuccess, "Profile updated successfully", echo.Map{"user": toUserPart(u)})
}

// Dashboard summarises the caller's account: profile and courses.
func (h *ProfileHandler) Dashboard(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Svc.GetProfile(ctx, p)
	if err != nil {
		return fail(c, err)
	}
	courses, err := h.Svc.ListCourses(ctx, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u), "courses": courses})
}

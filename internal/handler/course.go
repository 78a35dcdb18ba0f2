package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learning-journal/internal/middleware"
	"github.com/iliyamo/learning-journal/internal/service"
)

// CourseHandler serves the course endpoints.  All routes require a session.
type CourseHandler struct {
	Svc *service.Service
}

func NewCourseHandler(svc *service.Service) *CourseHandler {
	return &CourseHandler{Svc: svc}
}

func (h *CourseHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	courses, err := h.Svc.ListCourses(ctx, middleware.PrincipalFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"courses": courses})
}

func (h *CourseHandler) Create(c echo.Context) error {
	var in service.CourseInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	course, err := h.Svc.CreateCourse(ctx, middleware.PrincipalFrom(c), in)
	if err != nil {
		return fail(c, err)
	}
	return reply(c, http.StatusCreated, levelSuccess, "Course added successfully", echo.Map{"course": course})
}

func (h *CourseHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	var in service.CourseInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	course, err := h.Svc.UpdateCourse(ctx, middleware.PrincipalFrom(c), id, in)
	if err != nil {
		return fail(c, err)
	}
	return reply(c, http.StatusOK, levelSuccess, "Course updated successfully", echo.Map{"course": course})
}

// Delete removes a course; its entries stay, without a course.
func (h *CourseHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Svc.DeleteCourse(ctx, middleware.PrincipalFrom(c), id); err != nil {
		return fail(c, err)
	}
	return reply(c, http.StatusOK, levelSuccess, "Course deleted successfully", nil)
}

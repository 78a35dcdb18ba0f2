package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learning-journal/internal/middleware"
	"github.com/iliyamo/learning-journal/internal/model"
	"github.com/iliyamo/learning-journal/internal/service"
)

// JournalHandler serves the journal entry endpoints.  All routes require a
// session.
type JournalHandler struct {
	Svc *service.Service
}

func NewJournalHandler(svc *service.Service) *JournalHandler {
	return &JournalHandler{Svc: svc}
}

// entryForm accepts both form posts and JSON bodies.  course_id may be
// empty, a number or a numeric string.
type entryForm struct {
	Date       string      `json:"date" form:"date"`
	Subject    string      `json:"subject" form:"subject"`
	Learnt     string      `json:"learnt" form:"learnt"`
	Challenges string      `json:"challenges" form:"challenges"`
	Schedule   string      `json:"schedule" form:"schedule"`
	CourseID   json.Number `json:"course_id" form:"course_id"`
}

func (f entryForm) toInput() (service.EntryInput, bool) {
	in := service.EntryInput{
		Date:       f.Date,
		Subject:    f.Subject,
		Learnt:     f.Learnt,
		Challenges: f.Challenges,
		Schedule:   f.Schedule,
	}
	raw := strings.TrimSpace(f.CourseID.String())
	if raw == "" {
		return in, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return in, false
	}
	in.CourseID = &id
	return in, true
}

func bindEntry(c echo.Context) (service.EntryInput, error) {
	var f entryForm
	if err := c.Bind(&f); err != nil {
		return service.EntryInput{}, &service.Error{Kind: service.KindValidation, Message: "invalid request body", Err: err}
	}
	in, ok := f.toInput()
	if !ok {
		return service.EntryInput{}, &service.Error{Kind: service.KindValidation, Field: "course_id", Message: "selected course does not exist"}
	}
	return in, nil
}

// List returns the caller's entries and courses.  Query parameters
// search_date and search_subject narrow the entries.
func (h *JournalHandler) List(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	filter := model.EntryFilter{
		Date:    c.QueryParam("search_date"),
		Subject: c.QueryParam("search_subject"),
	}
	entries, err := h.Svc.ListEntries(ctx, p, filter)
	if err != nil {
		return fail(c, err)
	}
	courses, err := h.Svc.ListCourses(ctx, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"entries": entries,
		"courses": courses,
		"filter":  echo.Map{"search_date": filter.Date, "search_subject": filter.Subject},
	})
}

// Create adds an entry.
func (h *JournalHandler) Create(c echo.Context) error {
	in, err := bindEntry(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Svc.CreateEntry(ctx, middleware.PrincipalFrom(c), in)
	if err != nil {
		return fail(c, err)
	}
	return reply(c, http.StatusCreated, levelSuccess, "Journal entry added successfully", echo.Map{"entry": e})
}

// Get returns one entry.
func (h *JournalHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Svc.GetEntry(ctx, middleware.PrincipalFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"entry": e})
}

// Update rewrites an entry.
func (h *JournalHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	in, err := bindEntry(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Svc.UpdateEntry(ctx, middleware.PrincipalFrom(c), id, in)
	if err != nil {
		return fail(c, err)
	}
	return reply(c, http.StatusOK, levelSuccess, "Entry updated successfully", echo.Map{"entry": e})
}

// Delete removes an entry.
func (h *JournalHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Svc.DeleteEntry(ctx, middleware.PrincipalFrom(c), id); err != nil {
		return fail(c, err)
	}
	return reply(c, http.StatusOK, levelSuccess, "Journal entry deleted successfully", nil)
}

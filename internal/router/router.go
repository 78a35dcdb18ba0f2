package router // package router defines how HTTP routes are registered

import (
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/learning-journal/internal/handler"
	"github.com/iliyamo/learning-journal/internal/metrics"
	"github.com/iliyamo/learning-journal/internal/middleware"
	"github.com/iliyamo/learning-journal/internal/service"
	"github.com/iliyamo/learning-journal/internal/session"
)

// Deps are the components the routes are wired to.
type Deps struct {
	DB       *sqlx.DB
	Service  *service.Service
	Sessions *session.Manager
	Cookie   middleware.Cookie
}

// New returns an Echo instance with the global middleware and every route
// registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(metrics.Middleware())

	RegisterRoutes(e, d.DB)
	RegisterApp(e, d)
	return e
}

// RegisterRoutes registers routes that never look at the session: health
// and metrics.
func RegisterRoutes(e *echo.Echo, db *sqlx.DB) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterApp registers the session-aware routes.  Every route resolves the
// session cookie; journal, course and profile routes additionally send
// anonymous callers to /login.
func RegisterApp(e *echo.Echo, d Deps) {
	auth := handler.NewAuthHandler(d.Service, d.Cookie)
	journal := handler.NewJournalHandler(d.Service)
	courses := handler.NewCourseHandler(d.Service)
	profile := handler.NewProfileHandler(d.Service)

	// Session resolution applies to every route in this group.
	g := e.Group("", middleware.Session(d.Sessions, d.Cookie))
	g.GET("/", auth.Home)
	g.GET("/login", auth.LoginPage)
	g.POST("/login", auth.Login)
	g.GET("/register", auth.RegisterPage)
	g.POST("/register", auth.Register)
	g.GET("/logout", auth.Logout)
	g.POST("/logout", auth.Logout)

	// Protected routes.  RequireSession is attached per route: a nested
	// group with an empty prefix would also capture unknown paths.
	rs := middleware.RequireSession()
	g.GET("/dashboard", profile.Dashboard, rs)
	g.GET("/profile", profile.Show, rs)
	g.POST("/profile", profile.Update, rs)

	g.GET("/journal", journal.List, rs)
	g.POST("/journal", journal.Create, rs)
	g.GET("/journal/:id", journal.Get, rs)
	g.POST("/journal/:id/edit", journal.Update, rs)
	g.POST("/journal/:id/delete", journal.Delete, rs)

	g.GET("/courses", courses.List, rs)
	g.POST("/courses", courses.Create, rs)
	g.POST("/courses/:id/edit", courses.Update, rs)
	g.POST("/courses/:id/delete", courses.Delete, rs)
}

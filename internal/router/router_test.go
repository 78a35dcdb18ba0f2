package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/learning-journal/internal/config"
	"github.com/iliyamo/learning-journal/internal/database"
	"github.com/iliyamo/learning-journal/internal/middleware"
	"github.com/iliyamo/learning-journal/internal/queue"
	"github.com/iliyamo/learning-journal/internal/repository"
	"github.com/iliyamo/learning-journal/internal/service"
	"github.com/iliyamo/learning-journal/internal/session"
)

const cookieName = "journal_session"

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	db, err := database.Open(config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "journal.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	store := repository.NewStore(db)
	repos := store.Repos()
	sessions := session.NewManager(session.NewSQLStore(repos.Sessions), repos.Users, []byte("test-secret"), 30*time.Minute)
	opts := service.DefaultOptions()
	opts.BcryptCost = bcrypt.MinCost
	svc := service.New(store, sessions, queue.NopPublisher{}, opts)

	return New(Deps{
		DB:       db,
		Service:  svc,
		Sessions: sessions,
		Cookie:   middleware.Cookie{Name: cookieName, TTL: 30 * time.Minute},
	})
}

type client struct {
	t      *testing.T
	e      *echo.Echo
	cookie string
}

func (c *client) do(method, path string, req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if req == nil {
		req = httptest.NewRequest(method, path, nil)
	}
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: c.cookie})
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == cookieName {
			c.cookie = ck.Value
		}
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, path, nil)
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return c.do(http.MethodPost, path, req)
}

func (c *client) postJSON(path string, body any) *httptest.ResponseRecorder {
	b, err := json.Marshal(body)
	require.NoError(c.t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(b)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return c.do(http.MethodPost, path, req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func registerForm(username, email string) url.Values {
	return url.Values{
		"first_name":       {"Ann"},
		"last_name":        {"Lee"},
		"username":         {username},
		"email":            {email},
		"password":         {"Passw0rd!"},
		"confirm_password": {"Passw0rd!"},
	}
}

func signedUp(t *testing.T, e *echo.Echo, username, email string) *client {
	t.Helper()
	c := &client{t: t, e: e}
	rec := c.postForm("/register", registerForm(username, email))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, c.cookie)
	return c
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestServer(t)
	c := &client{t: t, e: e}

	rec := c.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = c.get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "journal_http_requests_total")
}

func TestAnonymousIsRedirectedToLogin(t *testing.T) {
	c := &client{t: t, e: newTestServer(t)}
	for _, path := range []string{"/journal", "/courses", "/profile", "/dashboard", "/journal/1"} {
		rec := c.get(path)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation), path)
	}
	rec := c.postJSON("/journal", map[string]string{"date": "2024-03-05"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = c.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["authenticated"])
}

func TestRegisterLoginLogout(t *testing.T) {
	e := newTestServer(t)
	ann := signedUp(t, e, "ann_lee", "ann@x.com")

	rec := ann.get("/login")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/journal", rec.Header().Get(echo.HeaderLocation))

	rec = ann.get("/logout")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", ann.cookie)
	rec = ann.get("/journal")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = ann.postForm("/login", url.Values{"username": {"ann_lee"}, "password": {"Passw0rd!"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	flash := decode(t, rec)["flash"].(map[string]any)
	assert.Equal(t, "success", flash["level"])
	assert.Equal(t, "Welcome back!", flash["message"])

	rec = ann.get("/journal")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDuplicateRegistration(t *testing.T) {
	e := newTestServer(t)
	signedUp(t, e, "ann_lee", "ann@x.com")

	c := &client{t: t, e: e}
	rec := c.postForm("/register", registerForm("ann_lee", "new@x.com"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), service.MsgDuplicateAccount)
	assert.Empty(t, c.cookie)
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	c := &client{t: t, e: newTestServer(t)}
	form := registerForm("ann_lee", "ann@x.com")
	long := "Aa1!" + strings.Repeat("x", 80)
	form.Set("password", long)
	form.Set("confirm_password", long)

	rec := c.postForm("/register", form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password", decode(t, rec)["field"])
	assert.Empty(t, c.cookie)
}

func TestLoginWhileSignedInDropsOldSession(t *testing.T) {
	e := newTestServer(t)
	ann := signedUp(t, e, "ann_lee", "ann@x.com")
	old := ann.cookie

	rec := ann.postForm("/login", url.Values{"username": {"ann_lee"}, "password": {"Passw0rd!"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEqual(t, old, ann.cookie)
	assert.Equal(t, http.StatusOK, ann.get("/journal").Code)

	stale := &client{t: t, e: e, cookie: old}
	assert.Equal(t, http.StatusSeeOther, stale.get("/journal").Code)
}

func TestLoginFailuresLookIdentical(t *testing.T) {
	e := newTestServer(t)
	signedUp(t, e, "ann_lee", "ann@x.com")

	c := &client{t: t, e: e}
	wrong := c.postForm("/login", url.Values{"username": {"ann_lee"}, "password": {"nope"}})
	unknown := c.postForm("/login", url.Values{"username": {"ghost"}, "password": {"nope"}})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Empty(t, c.cookie)

	missing := c.postForm("/login", url.Values{"username": {"ann_lee"}})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestJournalFlow(t *testing.T) {
	e := newTestServer(t)
	ann := signedUp(t, e, "ann_lee", "ann@x.com")
	bob := signedUp(t, e, "bob_ray", "bob@x.com")

	rec := ann.postForm("/courses", url.Values{"name": {"Algorithms"}, "code": {"CS101"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	courseID := decode(t, rec)["course"].(map[string]any)["id"].(float64)

	rec = ann.postJSON("/journal", map[string]any{
		"date": "2024-03-05", "subject": "Graphs", "learnt": "BFS", "challenges": "DFS", "schedule": "Dijkstra",
		"course_id": courseID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode(t, rec)["entry"].(map[string]any)
	assert.Equal(t, "Algorithms", entry["course_name"])
	entryPath := "/journal/" + jsonID(entry["id"])

	rec = ann.get(entryPath)
	assert.Equal(t, http.StatusOK, rec.Code)

	// bob sees nothing of ann's
	assert.Equal(t, http.StatusNotFound, bob.get(entryPath).Code)
	assert.Equal(t, http.StatusNotFound, bob.postForm(entryPath+"/delete", nil).Code)
	assert.Equal(t, http.StatusNotFound, bob.postForm("/courses/"+jsonID(courseID)+"/delete", nil).Code)
	rec = bob.get("/journal")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["entries"])

	rec = ann.get("/journal?search_subject=graph&search_date=2024-03-05")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["entries"], 1)
	rec = ann.get("/journal?search_date=2024-03-06")
	assert.Empty(t, decode(t, rec)["entries"])

	rec = ann.postForm(entryPath+"/edit", url.Values{
		"date": {"2024-03-06"}, "subject": {"Trees"}, "learnt": {"AVL"}, "challenges": {"rotations"}, "schedule": {"B-trees"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entry = decode(t, rec)["entry"].(map[string]any)
	assert.Equal(t, "Trees", entry["subject"])
	assert.Nil(t, entry["course_id"])

	rec = ann.postForm(entryPath+"/edit", url.Values{"date": {"06/03/2024"}, "subject": {"x"}, "learnt": {"x"}, "challenges": {"x"}, "schedule": {"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date", decode(t, rec)["field"])

	rec = ann.postForm(entryPath+"/delete", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, ann.get(entryPath).Code)
	assert.Equal(t, http.StatusNotFound, ann.get("/journal/abc").Code)
}

func TestCourseConflictAndProfile(t *testing.T) {
	e := newTestServer(t)
	ann := signedUp(t, e, "ann_lee", "ann@x.com")
	signedUp(t, e, "bob_ray", "bob@x.com")

	require.Equal(t, http.StatusCreated, ann.postForm("/courses", url.Values{"name": {"A"}, "code": {"X1"}}).Code)
	rec := ann.postForm("/courses", url.Values{"name": {"B"}, "code": {"X1"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ann.get("/profile")
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "ann_lee", user["username"])
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ann.postForm("/profile", url.Values{"first_name": {"Ann"}, "last_name": {"Lee"}, "username": {"bob_ray"}, "email": {"ann@x.com"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ann.postForm("/profile", url.Values{"first_name": {"Annie"}, "last_name": {"Lee"}, "username": {"ann_lee"}, "email": {"ann@x.com"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ann.get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Annie", body["user"].(map[string]any)["first_name"])
	assert.Len(t, body["courses"], 1)
}

func jsonID(v any) string {
	return strconv.FormatInt(int64(v.(float64)), 10)
}

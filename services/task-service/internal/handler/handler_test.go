package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/config"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/payload"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/repository"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/usecase"
	"github.com/vasapolrittideah/task-manager-api/shared/auth"
	"github.com/vasapolrittideah/task-manager-api/shared/database"
)

type fakeOTPSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *fakeOTPSender) SendOTP(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = code
	return nil
}

func (s *fakeOTPSender) code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

type apiFixture struct {
	t      *testing.T
	router http.Handler
	sender *fakeOTPSender
	now    time.Time
}

// envelope mirrors response.Envelope with the pagination fields flattened.
type envelope struct {
	Success     bool            `json:"success"`
	Error       json.RawMessage `json:"error"`
	Data        json.RawMessage `json:"data"`
	Page        int             `json:"page"`
	Limit       int             `json:"limit"`
	TotalDocs   int64           `json:"totalDocs"`
	TotalPages  int             `json:"totalPages"`
	HasPrevPage bool            `json:"hasPrevPage"`
	HasNextPage bool            `json:"hasNextPage"`
	PrevPage    *struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	} `json:"prevPage"`
	NextPage *struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	} `json:"nextPage"`
}

func (e envelope) errorMessage(t *testing.T) string {
	t.Helper()
	var msg string
	require.NoError(t, json.Unmarshal(e.Error, &msg), string(e.Error))
	return msg
}

func (e envelope) errorFields(t *testing.T) map[string]string {
	t.Helper()
	var fields map[string]string
	require.NoError(t, json.Unmarshal(e.Error, &fields), string(e.Error))
	return fields
}

func (e envelope) tasks(t *testing.T) []payload.TaskResponse {
	t.Helper()
	var tasks []payload.TaskResponse
	require.NoError(t, json.Unmarshal(e.Data, &tasks), string(e.Data))
	return tasks
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := zerolog.New(io.Discard)
	db, err := database.NewSQLiteDatabase("file:"+uuid.NewString()+"?mode=memory&cache=shared", &logger)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := &apiFixture{
		t:      t,
		sender: &fakeOTPSender{codes: map[string]string{}},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	sessionCfg := config.SessionConfig{
		Secret:     "test-secret",
		Issuer:     "task-service",
		ExpiresIn:  300 * time.Second,
		CookieName: "jwtToken",
	}
	jwtAuth := auth.NewJWTAuthenticator(sessionCfg.Issuer, sessionCfg.Issuer).
		WithClock(func() time.Time { return f.now })

	v, err := payload.NewValidator()
	require.NoError(t, err)

	f.router = NewRouter(RouterConfig{
		AuthUsecase: usecase.NewAuthUsecase(repository.NewUserGormRepository(&logger, db), f.sender, jwtAuth, sessionCfg),
		TaskUsecase: usecase.NewTaskUsecase(repository.NewTaskGormRepository(&logger, db)),
		Validator:   v,
		Session:     sessionCfg,
		Logger:      &logger,
	})

	return f
}

func (f *apiFixture) do(method, path string, body any, cookie *http.Cookie) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())

	return rec, env
}

func (f *apiFixture) login(email string) *http.Cookie {
	f.t.Helper()

	creds := map[string]string{"email": email, "password": "s3cret"}
	rec, _ := f.do(http.MethodPost, "/api/auth/register", creds, nil)
	require.Equal(f.t, http.StatusOK, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/auth/verify", map[string]string{"email": email, "otp": f.sender.code(email)}, nil)
	require.Equal(f.t, http.StatusOK, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/auth/login", creds, nil)
	require.Equal(f.t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "jwtToken" {
			return c
		}
	}
	f.t.Fatal("login did not set the session cookie")
	return nil
}

func (f *apiFixture) createTask(cookie *http.Cookie, name string) {
	f.t.Helper()
	rec, env := f.do(http.MethodPost, "/api/task/create", map[string]string{"taskName": name, "taskDate": "2026-05-17"}, cookie)
	require.Equal(f.t, http.StatusOK, rec.Code, string(env.Error))
}

func (f *apiFixture) list(cookie *http.Cookie) []payload.TaskResponse {
	f.t.Helper()
	rec, env := f.do(http.MethodGet, "/api/task/list", nil, cookie)
	require.Equal(f.t, http.StatusOK, rec.Code)
	return env.tasks(f.t)
}

func names(tasks []payload.TaskResponse) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.TaskName)
	}
	return out
}

func TestAuthFlow(t *testing.T) {
	f := newAPIFixture(t)
	creds := map[string]string{"email": "ada@example.com", "password": "s3cret"}

	rec, env := f.do(http.MethodPost, "/api/auth/register", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.JSONEq(t, fmt.Sprintf("%q", payload.RegisterSuccessMessage), string(env.Data))
	assert.Contains(t, []string{"", "null"}, string(env.Error))

	rec, env = f.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "ADA@example.com", "password": "other"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User already exists!", env.errorMessage(t))

	rec, _ = f.do(http.MethodPost, "/api/auth/login", creds, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	code := f.sender.code("ada@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	rec, _ = f.do(http.MethodPost, "/api/auth/verify", map[string]string{"email": "ada@example.com", "otp": wrong}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/auth/verify", map[string]string{"email": "bob@example.com", "otp": code}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/auth/verify", map[string]string{"email": "ada@example.com", "otp": code}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "bob@example.com", "password": "s3cret"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = f.do(http.MethodPost, "/api/auth/login", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwtToken", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 300, cookies[0].MaxAge)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestAuthValidation(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "nope", "password": "abc"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	fields := env.errorFields(t)
	assert.Contains(t, fields, "email error")
	assert.Contains(t, fields, "password error")

	rec, env = f.do(http.MethodPost, "/api/auth/register", "{not json", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.errorFields(t), "body error")

	trailing := `{"email":"ada@example.com","password":"s3cret"}garbage`
	rec, env = f.do(http.MethodPost, "/api/auth/register", trailing, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "body must contain a single JSON value", env.errorFields(t)["body error"])

	rec, env = f.do(http.MethodPost, "/api/auth/register", trailing[:len(trailing)-7]+`{}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.errorFields(t), "body error")

	rec, _ = f.do(http.MethodPost, "/api/auth/register", trailing[:len(trailing)-7]+"\n", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(http.MethodPost, "/api/auth/verify", map[string]string{"email": "ada@example.com", "otp": "12ab"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.errorFields(t), "otp error")
}

func TestTaskRoutesRequireSession(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(http.MethodGet, "/api/task/list", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", env.errorMessage(t))

	rec, _ = f.do(http.MethodGet, "/api/task/list", nil, &http.Cookie{Name: "jwtToken", Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := f.login("ada@example.com")
	issuedAt := f.now

	f.now = issuedAt.Add(299 * time.Second)
	rec, _ = f.do(http.MethodGet, "/api/task/list", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.now = issuedAt.Add(301 * time.Second)
	rec, _ = f.do(http.MethodGet, "/api/task/list", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.login("ada@example.com")

	for _, name := range []string{"Alpha", "bravo", "charlie", "delta"} {
		f.createTask(cookie, name)
	}

	rec, env := f.do(http.MethodPost, "/api/task/create", map[string]string{"taskName": "ALPHA", "taskDate": "2026-05-17"}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Task already exists!", env.errorMessage(t))

	rec, env = f.do(http.MethodPost, "/api/task/create", map[string]string{"taskName": "x", "taskDate": "someday"}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.errorFields(t), "taskName error")
	assert.Contains(t, env.errorFields(t), "taskDate error")

	tasks := f.list(cookie)
	require.Len(t, tasks, 4)
	for i, task := range tasks {
		assert.Equal(t, i+1, task.Order)
		assert.Equal(t, "2026-05-17", task.TaskDate)
	}
	assert.Equal(t, "alpha", tasks[0].TaskName)

	t.Run("update", func(t *testing.T) {
		rec, env := f.do(http.MethodPatch, "/api/task/update/"+tasks[1].ID, map[string]string{"taskStatus": "Completed"}, cookie)
		require.Equal(t, http.StatusOK, rec.Code, string(env.Error))
		var updated payload.TaskResponse
		require.NoError(t, json.Unmarshal(env.Data, &updated))
		assert.Equal(t, "completed", string(updated.TaskStatus))
		assert.Equal(t, 2, updated.Order)

		rec, env = f.do(http.MethodPatch, "/api/task/update/"+tasks[1].ID, map[string]string{}, cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, env.errorFields(t), "body error")

		rec, _ = f.do(http.MethodPatch, "/api/task/update/"+tasks[1].ID, map[string]string{"taskName": "alpha"}, cookie)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec, env = f.do(http.MethodPatch, "/api/task/update/not-an-id", map[string]string{"taskStatus": "completed"}, cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, env.errorFields(t), "id error")

		rec, env = f.do(http.MethodPatch, "/api/task/update/"+bson.NewObjectID().Hex(), map[string]string{"taskStatus": "completed"}, cookie)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Task not found!", env.errorMessage(t))
	})

	t.Run("rearrange", func(t *testing.T) {
		rec, env := f.do(http.MethodPatch, "/api/task/rearrange", []string{"alpha", "bravo"}, cookie)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Must supply every task!", env.errorMessage(t))
		assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, names(f.list(cookie)))

		rec, env = f.do(http.MethodPatch, "/api/task/rearrange", []string{"alpha", "ALPHA", "bravo", "charlie"}, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, env.errorFields(t), "taskNames error")

		rec, env = f.do(http.MethodPost, "/api/task/rearrange", []string{"delta", "charlie", "bravo", "alpha"}, cookie)
		require.Equal(t, http.StatusOK, rec.Code, string(env.Error))
		assert.Equal(t, []string{"delta", "charlie", "bravo", "alpha"}, names(env.tasks(t)))

		rec, _ = f.do(http.MethodPatch, "/api/task/rearrange", []string{"alpha", "bravo", "charlie", "delta"}, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("delete compacts", func(t *testing.T) {
		rec, _ := f.do(http.MethodDelete, "/api/task/delete/"+tasks[1].ID, nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		remaining := f.list(cookie)
		assert.Equal(t, []string{"alpha", "charlie", "delta"}, names(remaining))
		for i, task := range remaining {
			assert.Equal(t, i+1, task.Order)
		}

		rec, env := f.do(http.MethodDelete, "/api/task/delete/"+tasks[1].ID, nil, cookie)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Task not found!", env.errorMessage(t))

		rec, _ = f.do(http.MethodDelete, "/api/task/delete/123", nil, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTasksAreOwnerScoped(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.login("ada@example.com")
	bob := f.login("bob@example.com")

	f.createTask(ada, "groceries")
	f.createTask(bob, "groceries")

	adaTasks := f.list(ada)
	require.Len(t, adaTasks, 1)
	assert.Equal(t, 1, f.list(bob)[0].Order)

	rec, _ := f.do(http.MethodPatch, "/api/task/update/"+adaTasks[0].ID, map[string]string{"taskStatus": "completed"}, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(http.MethodDelete, "/api/task/delete/"+adaTasks[0].ID, nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, f.list(ada), 1)
}

func TestListPagination(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.login("ada@example.com")
	for i := 1; i <= 25; i++ {
		f.createTask(cookie, fmt.Sprintf("task-%02d", i))
	}

	rec, env := f.do(http.MethodGet, "/api/task/list?page=3&limit=10", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	tasks := env.tasks(t)
	require.Len(t, tasks, 5)
	assert.Equal(t, "task-21", tasks[0].TaskName)
	assert.Equal(t, 3, env.Page)
	assert.Equal(t, 10, env.Limit)
	assert.EqualValues(t, 25, env.TotalDocs)
	assert.Equal(t, 3, env.TotalPages)
	assert.False(t, env.HasNextPage)
	assert.True(t, env.HasPrevPage)
	require.NotNil(t, env.PrevPage)
	assert.Equal(t, 2, env.PrevPage.Page)
	assert.Equal(t, 10, env.PrevPage.Limit)
	assert.Nil(t, env.NextPage)

	rec, env = f.do(http.MethodGet, "/api/task/list?page=1", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.tasks(t), 25)
	assert.Zero(t, env.TotalDocs)

	rec, env = f.do(http.MethodGet, "/api/task/list?page=abc&limit=10", nil, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.errorFields(t), "page error")

	rec, _ = f.do(http.MethodGet, "/api/task/list?page=0&limit=10", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = f.do(http.MethodGet, "/api/task/list?page=1&limit=101", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.tasks(t), 25)
	assert.Equal(t, 101, env.Limit)
	assert.Equal(t, 1, env.TotalPages)
	assert.False(t, env.HasNextPage)
}

func TestRouterFallbacks(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", env.errorMessage(t))

	rec, _ = f.do(http.MethodGet, "/api/auth/register", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, env = f.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

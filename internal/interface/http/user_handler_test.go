package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-directory/internal/application"
	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/internal/infrastructure/sqlite"
	handlers "github.com/oksasatya/go-user-directory/internal/interface/http"
	"github.com/oksasatya/go-user-directory/internal/interface/middleware"
	"github.com/oksasatya/go-user-directory/pkg/helpers"
	"github.com/oksasatya/go-user-directory/pkg/response"
	"github.com/oksasatya/go-user-directory/pkg/validation"
)

var today = civil.Date{Year: 2026, Month: 10, Day: 18}

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type testServer struct {
	engine *gin.Engine
	svc    *application.Service
}

func newServer(t *testing.T, upsert bool) *testServer {
	t.Helper()
	logger := helpers.NewNopLogger()
	db, err := sqlite.OpenMigrated(context.Background(), sqlite.MemoryPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := application.NewService(sqlite.NewUserRepository(db), application.Policy{MinAge: 18, UpsertMissing: upsert}, nil, nil, logger)
	svc.Today = func() civil.Date { return today }
	h := handlers.NewUserHandler(svc, 18, logger)
	h.Today = svc.Today

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.RequestIDMiddleware(), middleware.ErrorMapper(logger))
	users := r.Group("/users")
	users.POST("", h.Create)
	users.GET("/search", h.Search)
	users.GET("/:userId", h.Get)
	users.PUT("/:userId", h.Update)
	users.DELETE("/:userId", h.Delete)
	return &testServer{engine: r, svc: svc}
}

func (s *testServer) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	s.engine.ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func userJSON(email string, birth civil.Date) string {
	return `{"email":"` + email + `","firstName":"John","lastName":"Doe","birthDate":"` + birth.String() +
		`","address":"123 Main St","phoneNumber":"1234567890"}`
}

func yearsAgo(n int) civil.Date {
	return civil.Date{Year: today.Year - n, Month: today.Month, Day: today.Day}
}

func TestCreate_AdultReturns201(t *testing.T) {
	s := newServer(t, true)

	rr := s.do(http.MethodPost, "/users", userJSON("john@example.com", yearsAgo(20)))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Empty(t, rr.Body.String())

	got, found, err := s.svc.FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "john@example.com", got.Email)
}

func TestCreate_ExactlyMinAgeAccepted(t *testing.T) {
	s := newServer(t, true)
	rr := s.do(http.MethodPost, "/users", userJSON("edge@example.com", yearsAgo(18)))
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestCreate_UnderageReturns400(t *testing.T) {
	s := newServer(t, true)

	rr := s.do(http.MethodPost, "/users", userJSON("kid@example.com", yearsAgo(10)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := errorBody(t, rr)
	assert.Equal(t, http.StatusBadRequest, body.Status)
	assert.Contains(t, body.Message, "18")
	assert.NotEmpty(t, body.Timestamp)
}

func TestCreate_BadPayloads(t *testing.T) {
	s := newServer(t, true)

	cases := map[string]struct {
		body    string
		message string
	}{
		"bad date":      {`{"email":"a@b.co","firstName":"A","lastName":"B","birthDate":"15-05-1990"}`, "Invalid date format"},
		"missing email": {`{"firstName":"A","lastName":"B","birthDate":"1990-05-15"}`, "email : is required"},
		"bad email":     {`{"email":"nope","firstName":"A","lastName":"B","birthDate":"1990-05-15"}`, "email : must be a valid email"},
		"wrong type":    {`{"email":"a@b.co","firstName":1,"lastName":"B","birthDate":"1990-05-15"}`, "must be of type string"},
		"broken json":   {`{"email":`, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := s.do(http.MethodPost, "/users", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, errorBody(t, rr).Message, tc.message)
		})
	}
}

func TestUpdate_Existing(t *testing.T) {
	s := newServer(t, true)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/users", userJSON("john@example.com", yearsAgo(30))).Code)

	rr := s.do(http.MethodPut, "/users/1", userJSON("changed@example.com", yearsAgo(30)))
	assert.Equal(t, http.StatusOK, rr.Code)

	got, _, err := s.svc.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "changed@example.com", got.Email)
}

func TestUpdate_MissingUpserts(t *testing.T) {
	s := newServer(t, true)

	rr := s.do(http.MethodPut, "/users/77", userJSON("late@example.com", yearsAgo(40)))
	assert.Equal(t, http.StatusOK, rr.Code)

	got, found, err := s.svc.FindByID(context.Background(), 77)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(77), got.ID)
}

func TestUpdate_MissingRejected(t *testing.T) {
	s := newServer(t, false)

	rr := s.do(http.MethodPut, "/users/77", userJSON("late@example.com", yearsAgo(40)))
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, http.StatusNotFound, errorBody(t, rr).Status)
}

func TestUpdate_InvalidID(t *testing.T) {
	s := newServer(t, true)
	rr := s.do(http.MethodPut, "/users/abc", userJSON("x@example.com", yearsAgo(40)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorBody(t, rr).Message, "Invalid user id")
}

func TestDelete(t *testing.T) {
	s := newServer(t, true)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/users", userJSON("john@example.com", yearsAgo(30))).Code)

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/users/1", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/users/1", "").Code)
}

func TestDelete_MissingReturns404(t *testing.T) {
	s := newServer(t, true)
	rr := s.do(http.MethodDelete, "/users/999", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, errorBody(t, rr).Message, "999")
}

func TestGet(t *testing.T) {
	s := newServer(t, true)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/users", userJSON("john@example.com", yearsAgo(30))).Code)

	rr := s.do(http.MethodGet, "/users/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var u entity.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &u))
	assert.Equal(t, "john@example.com", u.Email)
	assert.Equal(t, yearsAgo(30), u.BirthDate)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/users/2", "").Code)
}

func seedForSearch(t *testing.T, s *testServer) {
	t.Helper()
	for _, body := range []string{
		userJSON("a@example.com", civil.Date{Year: 1990, Month: 5, Day: 15}),
		userJSON("b@example.com", civil.Date{Year: 1992, Month: 8, Day: 21}),
		userJSON("c@example.com", civil.Date{Year: 2000, Month: 1, Day: 1}),
	} {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/users", body).Code)
	}
}

func TestSearch_TextByDefault(t *testing.T) {
	s := newServer(t, true)
	seedForSearch(t, s)

	rr := s.do(http.MethodGet, "/users/search?fromDate=1990-01-01&toDate=1995-12-31", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain"))
	lines := strings.Split(rr.Body.String(), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `email="a@example.com"`)
	assert.Contains(t, lines[1], `email="b@example.com"`)
}

func TestSearch_JSONOnRequest(t *testing.T) {
	s := newServer(t, true)
	seedForSearch(t, s)

	rr := s.do(http.MethodGet, "/users/search?fromDate=1990-05-15&toDate=1990-05-15", "", "Accept", "application/json")
	require.Equal(t, http.StatusOK, rr.Code)
	var users []entity.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "a@example.com", users[0].Email)
}

func TestSearch_EmptyResultIsEmptyJSONArray(t *testing.T) {
	s := newServer(t, true)
	rr := s.do(http.MethodGet, "/users/search?fromDate=1900-01-01&toDate=1901-01-01", "", "Accept", "application/json")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestSearch_Errors(t *testing.T) {
	s := newServer(t, true)

	cases := map[string]struct {
		query   string
		message string
	}{
		"reversed range": {"fromDate=2000-01-01&toDate=1990-01-01", "'From' date must be before 'To' date."},
		"missing from":   {"toDate=1990-01-01", "fromDate"},
		"missing to":     {"fromDate=1990-01-01", "toDate"},
		"bad date":       {"fromDate=01/01/1990&toDate=1990-01-01", "Invalid date format"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := s.do(http.MethodGet, "/users/search?"+tc.query, "")
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, errorBody(t, rr).Message, tc.message)
		})
	}
}

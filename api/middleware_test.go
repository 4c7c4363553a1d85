package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/legal-case-api/api"
	"github.com/linesmerrill/legal-case-api/api/testhelpers"
	"github.com/linesmerrill/legal-case-api/databases"
	"github.com/linesmerrill/legal-case-api/databases/mocks"
	"github.com/linesmerrill/legal-case-api/models"
)

func newAuthenticator(user *models.User) api.Authenticator {
	conn := &mocks.CollectionHelper{}
	if user != nil {
		conn.On("FindOne", mock.Anything, mock.Anything).Return(testhelpers.FoundOne(*user))
	} else {
		conn.On("FindOne", mock.Anything, mock.Anything).Return(testhelpers.NotFound())
	}
	db := testhelpers.NewDB(map[string]*mocks.CollectionHelper{"users": conn})
	return api.Authenticator{
		Secret: []byte("test-secret"),
		TTL:    24 * time.Hour,
		DB:     databases.NewUserDatabase(db),
	}
}

func TestAuthenticator_IssueAndParseToken(t *testing.T) {
	a := newAuthenticator(nil)
	token, err := a.IssueToken("5fc51f58c72ff10004dca382")
	require.NoError(t, err)

	id, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "5fc51f58c72ff10004dca382", id)
}

func TestAuthenticator_ParseTokenExpired(t *testing.T) {
	a := newAuthenticator(nil)
	a.Now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, err := a.IssueToken("5fc51f58c72ff10004dca382")
	require.NoError(t, err)

	a.Now = nil
	_, err = a.ParseToken(token)
	assert.ErrorIs(t, err, api.ErrInvalidToken)
}

func TestAuthenticator_ParseTokenWrongSecret(t *testing.T) {
	a := newAuthenticator(nil)
	token, err := a.IssueToken("5fc51f58c72ff10004dca382")
	require.NoError(t, err)

	a.Secret = []byte("another-secret")
	_, err = a.ParseToken(token)
	assert.ErrorIs(t, err, api.ErrInvalidToken)
}

func TestAuthenticator_MiddlewareNoToken(t *testing.T) {
	a := newAuthenticator(nil)
	called := false
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req, _ := http.NewRequest("GET", "/api/auth/profile", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "Not authorized, no token"}}
	b, _ := json.Marshal(expected)
	assert.Equal(t, string(b), rr.Body.String())
}

func TestAuthenticator_MiddlewareUnknownUser(t *testing.T) {
	a := newAuthenticator(nil)
	token, _ := a.IssueToken(primitive.NewObjectID().Hex())
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req, _ := http.NewRequest("GET", "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticator_MiddlewareStoresUser(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), FullName: "Asha Rao", Email: "asha@example.com"}
	a := newAuthenticator(user)
	token, _ := a.IssueToken(user.ID.Hex())

	var got *models.User
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = api.UserFromContext(r.Context())
	}))

	req, _ := http.NewRequest("GET", "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthenticator_OptionalLetsAnonymousThrough(t *testing.T) {
	a := newAuthenticator(nil)
	reached := false
	h := a.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := api.UserFromContext(r.Context())
		assert.False(t, ok)
		reached = true
	}))

	req, _ := http.NewRequest("GET", "/api/cases", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, reached)
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		_, _ = w.Write([]byte("late"))
	})
	h := api.TimeoutMiddleware(20 * time.Millisecond)(slow)

	req, _ := http.NewRequest("GET", "/api/cases", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestTimeout, rr.Code)
	assert.Contains(t, rr.Body.String(), "Request timeout")
}

func TestTimeoutMiddlewarePassesThrough(t *testing.T) {
	fast := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	h := api.TimeoutMiddleware(time.Second)(fast)

	req, _ := http.NewRequest("POST", "/api/cases", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, rr.Body.String())
}

func TestDeadlineMiddlewareDoesNotBuffer(t *testing.T) {
	var hasDeadline, flushable bool
	h := api.DeadlineMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
		_, flushable = w.(http.Flusher)
		_, _ = w.Write([]byte("chunk"))
	}))

	req, _ := http.NewRequest("GET", "/download/report.pdf", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.True(t, hasDeadline)
	assert.True(t, flushable)
	assert.Equal(t, "chunk", rr.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	h := api.RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("nil map"))
	}))

	req, _ := http.NewRequest("GET", "/api/cases", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Server error")
}

func TestLoggingMiddlewareSetsRequestID(t *testing.T) {
	h := api.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req, _ := http.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(api.RequestIDHeader))
}

func TestNotFoundHandler(t *testing.T) {
	req, _ := http.NewRequest("GET", "/nope", nil)
	rr := httptest.NewRecorder()
	api.NotFoundHandler(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"message":"Route not found"}`, rr.Body.String())
}

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	userapp "github.com/oksasatya/user-registration-service/internal/application"
	"github.com/oksasatya/user-registration-service/internal/domain/entity"
	"github.com/oksasatya/user-registration-service/internal/domain/repository"
	"github.com/oksasatya/user-registration-service/internal/mocks"
	"github.com/oksasatya/user-registration-service/pkg/helpers"
	"github.com/oksasatya/user-registration-service/pkg/response"
)

func TestMain(m *testing.M) {
	helpers.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

var storedAt = time.Date(2024, 3, 14, 1, 26, 53, 0, time.UTC)

type fixture struct {
	engine   *gin.Engine
	repo     *mocks.UserRepository
	notifier *mocks.Notifier
	hook     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	repo := &mocks.UserRepository{}
	notifier := &mocks.Notifier{}
	logger, hook := test.NewNullLogger()
	svc := userapp.NewService(repo, notifier, nil, userapp.NotificationConfig{
		Enabled:     true,
		Subject:     "Registration Confirmed",
		CompanyName: "PCCW",
	}, logger)
	h := NewUserHandler(svc, logger, loc)

	r := gin.New()
	r.POST("/users/register", h.Register)
	r.GET("/users", h.List)
	r.GET("/users/search", h.Search)
	r.GET("/users/:id", h.Get)
	r.PATCH("/users", h.UpdateMany)
	r.DELETE("/users", h.DeleteMany)

	return &fixture{engine: r, repo: repo, notifier: notifier, hook: hook}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorMessage {
	t.Helper()
	var msg response.ErrorMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	return msg
}

func user(id int64, username string) *entity.User {
	return &entity.User{
		ID:            id,
		Email:         username + "@gmail.com",
		Username:      username,
		Password:      "$2a$10$hash",
		FirstName:     "John",
		LastName:      "Doe",
		CreatedAt:     storedAt,
		LastUpdatedAt: storedAt,
	}
}

const validRegistration = `{"email":"user1@gmail.com","username":"user1","password":"Password123!","firstName":"John","lastName":"Doe"}`

func TestUserHandler_Register(t *testing.T) {
	f := newFixture(t)
	f.repo.On("WithinTx", mock.Anything).Return(nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.User")).
		Run(func(args mock.Arguments) {
			u := args.Get(1).(*entity.User)
			u.ID = 1
			u.CreatedAt = storedAt
			u.LastUpdatedAt = storedAt
		}).Return(nil)
	f.notifier.On("Notify", mock.Anything, "user1@gmail.com", "Registration Confirmed",
		"Congratulations! You are successfully registered to PCCW. Your username is: user1").Return()

	w := f.do(http.MethodPost, "/users/register", validRegistration)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id": 1,
		"email": "user1@gmail.com",
		"username": "user1",
		"firstName": "John",
		"lastName": "Doe",
		"createdAt": "03-14-2024 09:26:53 PST",
		"lastUpdatedAt": "03-14-2024 09:26:53 PST",
		"deleted": false
	}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")
	f.notifier.AssertExpectations(t)
}

func TestUserHandler_Register_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(f *fixture)
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "missing body",
			body:       "",
			wantStatus: http.StatusBadRequest,
			wantCode:   response.CodeInvalidBody,
			wantMsg:    "Missing/invalid request body",
		},
		{
			name:       "malformed json",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   response.CodeInvalidBody,
			wantMsg:    "Missing/invalid request body",
		},
		{
			name:       "invalid fields",
			body:       `{"email":"not-an-email","username":"U","password":"weak","firstName":"J0hn","lastName":""}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   response.CodeValidation,
			wantMsg:    "Invalid request",
		},
		{
			name: "duplicate",
			body: validRegistration,
			setup: func(f *fixture) {
				f.repo.On("WithinTx", mock.Anything).Return(nil)
				f.repo.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: users_username_key", repository.ErrDuplicate))
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   response.CodeDuplicateIdentity,
			wantMsg:    "Username or email already taken",
		},
		{
			name: "store failure",
			body: validRegistration,
			setup: func(f *fixture) {
				f.repo.On("WithinTx", mock.Anything).Return(errors.New("dial tcp: connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   response.CodeInternal,
			wantMsg:    "Internal server error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}

			w := f.do(http.MethodPost, "/users/register", tc.body)

			assert.Equal(t, tc.wantStatus, w.Code)
			msg := decodeError(t, w)
			assert.Equal(t, tc.wantCode, msg.Code)
			assert.Equal(t, tc.wantMsg, msg.Message)
			assert.NotContains(t, w.Body.String(), "connection refused")
			f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUserHandler_Register_LogsUnclassifiedErrors(t *testing.T) {
	f := newFixture(t)
	f.repo.On("WithinTx", mock.Anything).Return(errors.New("dial tcp: connection refused"))

	f.do(http.MethodPost, "/users/register", validRegistration)

	entry := f.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, response.CodeInternal, entry.Data["code"])
}

func TestUserHandler_Get(t *testing.T) {
	f := newFixture(t)
	deleted := user(2, "user2")
	deleted.Deleted = true
	f.repo.On("GetByID", mock.Anything, int64(2)).Return(deleted, nil)
	f.repo.On("GetByID", mock.Anything, int64(3)).Return(nil, repository.ErrNotFound)

	w := f.do(http.MethodGet, "/users/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user2", body["username"])
	assert.Equal(t, true, body["deleted"])

	w = f.do(http.MethodGet, "/users/3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrorMessage{Code: "UserNotFound", Message: "User not found"}, decodeError(t, w))

	w = f.do(http.MethodGet, "/users/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeValidation, decodeError(t, w).Code)
}

func TestUserHandler_List(t *testing.T) {
	f := newFixture(t)
	f.repo.On("FindAll", mock.Anything).Return([]*entity.User{}, nil).Once()

	w := f.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	f.repo.On("FindAll", mock.Anything).Return([]*entity.User{user(1, "user1"), user(2, "user2")}, nil).Once()

	w = f.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "user2", body[1]["username"])
}

func TestUserHandler_Search_WithoutIndex(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/users/search?q=john&size=5", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestUserHandler_UpdateMany(t *testing.T) {
	f := newFixture(t)
	f.repo.On("WithinTx", mock.Anything).Return(nil)
	f.repo.On("GetByID", mock.Anything, int64(1)).Return(user(1, "user1"), nil)
	f.repo.On("SaveAll", mock.Anything, mock.Anything).Return(nil)

	w := f.do(http.MethodPatch, "/users", `[{"id":1,"firstName":"Jane"}]`)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "Jane", body[0]["firstName"])
	assert.Equal(t, "Doe", body[0]["lastName"])
}

func TestUserHandler_UpdateMany_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(f *fixture)
		wantStatus int
		want       response.ErrorMessage
	}{
		{
			name:       "empty list",
			body:       `[]`,
			wantStatus: http.StatusBadRequest,
			want:       response.ErrorMessage{Code: "ValidationError", Message: "Invalid request"},
		},
		{
			name:       "not a list",
			body:       `{"id":1}`,
			wantStatus: http.StatusBadRequest,
			want:       response.ErrorMessage{Code: "MissingOrInvalidRequestBody", Message: "Missing/invalid request body"},
		},
		{
			name: "unknown id",
			body: `[{"id":1,"firstName":"Jane"},{"id":7,"firstName":"Jay"}]`,
			setup: func(f *fixture) {
				f.repo.On("WithinTx", mock.Anything).Return(nil)
				f.repo.On("GetByID", mock.Anything, int64(1)).Return(user(1, "user1"), nil)
				f.repo.On("GetByID", mock.Anything, int64(7)).Return(nil, repository.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
			want:       response.ErrorMessage{Code: "UserNotFound", Message: "At least one of the provided user IDs does not exist"},
		},
		{
			name: "duplicate username",
			body: `[{"id":1,"username":"user2"}]`,
			setup: func(f *fixture) {
				f.repo.On("WithinTx", mock.Anything).Return(nil)
				f.repo.On("GetByID", mock.Anything, int64(1)).Return(user(1, "user1"), nil)
				f.repo.On("SaveAll", mock.Anything, mock.Anything).Return(fmt.Errorf("save user 1: %w", repository.ErrDuplicate))
			},
			wantStatus: http.StatusBadRequest,
			want:       response.ErrorMessage{Code: "DuplicateUsernameOrEmail", Message: "At least one of the usernames/emails provided already taken"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}

			w := f.do(http.MethodPatch, "/users", tc.body)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.want, decodeError(t, w))
		})
	}
}

func TestUserHandler_DeleteMany(t *testing.T) {
	f := newFixture(t)
	f.repo.On("WithinTx", mock.Anything).Return(nil)
	f.repo.On("SoftDeleteByIDs", mock.Anything, []int64{1, 2}).Return(int64(2), nil)

	w := f.do(http.MethodDelete, "/users", `[1,2]`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	f.repo.AssertExpectations(t)

	w = f.do(http.MethodDelete, "/users", `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeValidation, decodeError(t, w).Code)

	w = f.do(http.MethodDelete, "/users", `["a"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeInvalidBody, decodeError(t, w).Code)
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/user-registration-service/internal/application"
	"github.com/oksasatya/user-registration-service/internal/domain/entity"
	"github.com/oksasatya/user-registration-service/pkg/helpers"
	"github.com/oksasatya/user-registration-service/pkg/response"
	"github.com/oksasatya/user-registration-service/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
	Loc    *time.Location
}

// NewUserHandler builds the handler. Timestamps are rendered in loc (UTC when nil).
func NewUserHandler(svc *userapp.Service, logger *logrus.Logger, loc *time.Location) *UserHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &UserHandler{Svc: svc, Logger: logger, Loc: loc}
}

type registerRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type updateUserRequest struct {
	ID        *int64  `json:"id"`
	Email     *string `json:"email"`
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type userResponse struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	CreatedAt     string `json:"createdAt"`
	LastUpdatedAt string `json:"lastUpdatedAt"`
	Deleted       bool   `json:"deleted"`
}

func (h *UserHandler) toResponse(u *entity.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		CreatedAt:     helpers.FormatTimestamp(u.CreatedAt, h.Loc),
		LastUpdatedAt: helpers.FormatTimestamp(u.LastUpdatedAt, h.Loc),
		Deleted:       u.Deleted,
	}
}

func (h *UserHandler) toResponses(users []*entity.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, h.toResponse(u))
	}
	return out
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidBody(c, err)
		return
	}

	u, err := h.Svc.Create(c.Request.Context(), userapp.CreateUserInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.toResponse(u))
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, errors.Join(userapp.ErrValidation, err))
		return
	}

	u, err := h.Svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.toResponse(u))
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.toResponses(users))
}

// Search queries the user index: GET /users/search?q=john&size=10
func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	users, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.toResponses(users))
}

func (h *UserHandler) UpdateMany(c *gin.Context) {
	var req []updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidBody(c, err)
		return
	}

	in := make([]userapp.UpdateUserInput, 0, len(req))
	for _, r := range req {
		in = append(in, userapp.UpdateUserInput{
			ID:        r.ID,
			Email:     r.Email,
			Username:  r.Username,
			Password:  r.Password,
			FirstName: r.FirstName,
			LastName:  r.LastName,
		})
	}

	users, err := h.Svc.UpdateMany(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.toResponses(users))
}

func (h *UserHandler) DeleteMany(c *gin.Context) {
	var ids []int64
	if err := c.ShouldBindJSON(&ids); err != nil {
		h.invalidBody(c, err)
		return
	}

	if err := h.Svc.SoftDeleteMany(c.Request.Context(), ids); err != nil {
		h.fail(c, err)
		return
	}
	response.Empty(c, http.StatusOK)
}

func (h *UserHandler) invalidBody(c *gin.Context, err error) {
	if h.Logger != nil {
		helpers.LogWarn(h.Logger, "unreadable request body", err, logrus.Fields{
			"request_id": c.GetString("request_id"),
			"details":    validation.ToDetails(err),
		})
	}
	response.Error(c, http.StatusBadRequest, response.CodeInvalidBody, response.MsgInvalidBody)
}

// fail maps lifecycle errors to status, code and message.
func (h *UserHandler) fail(c *gin.Context, err error) {
	status, code, msg := classify(err)

	if h.Logger != nil {
		fields := logrus.Fields{"request_id": c.GetString("request_id"), "code": code}
		if status == http.StatusInternalServerError {
			helpers.LogError(h.Logger, "request failed", err, fields)
		} else {
			if errors.Is(err, userapp.ErrValidation) {
				fields["details"] = validation.ToDetails(err)
			}
			helpers.LogWarn(h.Logger, "request rejected", err, fields)
		}
	}
	response.Error(c, status, code, msg)
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, userapp.ErrValidation):
		return http.StatusBadRequest, response.CodeValidation, response.MsgInvalidRequest
	case errors.Is(err, userapp.ErrUsersNotFound):
		return http.StatusNotFound, response.CodeUserNotFound, response.MsgUsersNotFound
	case errors.Is(err, userapp.ErrUserNotFound):
		return http.StatusNotFound, response.CodeUserNotFound, response.MsgUserNotFound
	case errors.Is(err, userapp.ErrDuplicateIdentities):
		return http.StatusBadRequest, response.CodeDuplicateIdentity, response.MsgDuplicateIdentities
	case errors.Is(err, userapp.ErrDuplicateIdentity):
		return http.StatusBadRequest, response.CodeDuplicateIdentity, response.MsgDuplicateIdentity
	default:
		return http.StatusInternalServerError, response.CodeInternal, response.MsgInternal
	}
}

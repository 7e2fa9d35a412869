package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned in ErrorMessage.Code.
const (
	CodeValidation        = "ValidationError"
	CodeUserNotFound      = "UserNotFound"
	CodeDuplicateIdentity = "DuplicateUsernameOrEmail"
	CodeInvalidBody       = "MissingOrInvalidRequestBody"
	CodeInvalidResource   = "InvalidResource"
	CodeMethodNotAllowed  = "MethodNotAllowed"
	CodeTooManyRequests   = "TooManyRequests"
	CodeInternal          = "InternalServerError"
)

// Messages paired with the codes above.
const (
	MsgInvalidRequest      = "Invalid request"
	MsgUserNotFound        = "User not found"
	MsgUsersNotFound       = "At least one of the provided user IDs does not exist"
	MsgDuplicateIdentity   = "Username or email already taken"
	MsgDuplicateIdentities = "At least one of the usernames/emails provided already taken"
	MsgInvalidBody         = "Missing/invalid request body"
	MsgTooManyRequests     = "Rate limit exceeded"
	MsgInternal            = "Internal server error"
)

// ErrorMessage is the body of every failed request.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes data as the JSON body. A zero status means 200.
func Success[T any](ctx *gin.Context, status int, data T) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, data)
}

// Empty writes a status with no body.
func Empty(ctx *gin.Context, status int) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.Status(status)
}

// Error aborts the chain and writes {code, message}. A zero status means 400.
func Error(ctx *gin.Context, status int, code, message string) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.AbortWithStatusJSON(status, ErrorMessage{Code: code, Message: message})
}

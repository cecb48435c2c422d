package util

import (
	"errors"
	"net/http"
	"tp_portal_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse wraps one page of a list.
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

var errorStatus = []struct {
	err    error
	status int
}{
	{ErrValidation, http.StatusBadRequest},
	{ErrPasswordMismatch, http.StatusBadRequest},
	{ErrPasswordTooShort, http.StatusBadRequest},
	{ErrCodeLength, http.StatusBadRequest},
	{ErrUnknownCodeType, http.StatusBadRequest},
	{ErrRegNumberFormat, http.StatusBadRequest},
	{ErrSchoolRequired, http.StatusBadRequest},
	{ErrScoreOutOfRange, http.StatusBadRequest},
	{ErrRatingRequired, http.StatusBadRequest},
	{ErrReviewRequired, http.StatusBadRequest},
	{ErrNameRequired, http.StatusBadRequest},
	{ErrFileTooLarge, http.StatusBadRequest},
	{ErrNotAnImage, http.StatusBadRequest},
	{ErrNoSupervisor, http.StatusBadRequest},

	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrWrongPassword, http.StatusUnauthorized},
	{ErrRoleMismatch, http.StatusUnauthorized},
	{ErrSessionRevoked, http.StatusUnauthorized},

	{ErrRegNumberNotAuthorized, http.StatusForbidden},
	{ErrCodeNotAuthorized, http.StatusForbidden},
	{ErrInvalidSupervisorID, http.StatusForbidden},
	{ErrAccountSuspended, http.StatusForbidden},
	{ErrNotAdmin, http.StatusForbidden},
	{ErrPermissionDenied, http.StatusForbidden},
	{ErrNotYourStudent, http.StatusForbidden},
	{ErrScoreNotReleased, http.StatusForbidden},

	{ErrUserNotFound, http.StatusNotFound},
	{ErrCodeNotFound, http.StatusNotFound},
	{ErrRegNumberNotFound, http.StatusNotFound},
	{ErrApprovalNotFound, http.StatusNotFound},
	{ErrNotificationNotFound, http.StatusNotFound},

	{ErrEmailRegistered, http.StatusConflict},
	{ErrRegNumberTaken, http.StatusConflict},
	{ErrCodeAlreadyUsed, http.StatusConflict},
	{ErrRegNumberExists, http.StatusConflict},
	{ErrApprovalAlreadyDecided, http.StatusConflict},
	{ErrSchoolAlreadySet, http.StatusConflict},
	{ErrAlreadyReviewed, http.StatusConflict},
}

// StatusOf maps a domain error to its HTTP status, 0 when the error is not a
// known domain error.
func StatusOf(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return 0
}

// HandleError replies with the status of a known domain error and its message,
// and logs anything else as an internal error.
func HandleError(c *gin.Context, err error) {
	if status := StatusOf(err); status != 0 {
		Error(c, status, err.Error())
		return
	}
	LogInternalError(c, err)
}

package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	apperrors "novostudio.tech/foundation/internal/pkg/errors"
	"novostudio.tech/foundation/internal/pkg/logger"
	"novostudio.tech/foundation/internal/pkg/redact"
	"novostudio.tech/foundation/internal/pkg/tracker"
)

// maxBufferedBody bounds how much of a request body is retained for error
// reports.
const maxBufferedBody = 64 << 10

// ErrorResponse is the envelope every error leaves the API in.
type ErrorResponse struct {
	Status     int                    `json:"status"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Timestamp  string                 `json:"timestamp"`
	Path       string                 `json:"path"`
	RequestID  string                 `json:"requestId,omitempty"`
	Validation []apperrors.FieldError `json:"validation,omitempty"`
	Details    *apperrors.DBDetails   `json:"details,omitempty"`
}

// ErrorHandler converts every error raised via c.Error, and every panic,
// into the uniform JSON envelope. Server errors are logged at error level
// and forwarded to the tracker with redacted request context; client errors
// are logged at warn level and never reported.
func ErrorHandler(production bool) gin.HandlerFunc {
	redactor, err := redact.New(redact.Config{
		Keys: []string{
			"password", "password_hash", "new_password", "current_password",
			"token", "access_token", "refresh_token", "secret", "code", "otp",
			"authorization", "cookie", "set-cookie", "x-api-key",
			"Authorization", "Cookie", "Set-Cookie", "X-Api-Key",
		},
		Depth: 4,
	})
	if err != nil {
		panic(fmt.Sprintf("build error handler redactor: %v", err))
	}

	return func(c *gin.Context) {
		body := bufferBody(c)

		defer func() {
			if r := recover(); r != nil {
				renderError(c, production, redactor, body,
					apperrors.Internal("Internal server error"),
					fmt.Errorf("panic: %v", r))
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		renderError(c, production, redactor, body, classify(err, production), err)
	}
}

// bufferBody reads and restores the request body so it can be attached to a
// later error report. Bodies beyond maxBufferedBody are truncated in the
// buffer only; the handler still sees the full stream.
func bufferBody(c *gin.Context) []byte {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	buf, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBufferedBody+1))
	if err != nil {
		return nil
	}
	rest := c.Request.Body
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf), rest))
	if len(buf) > maxBufferedBody {
		return buf[:maxBufferedBody]
	}
	return buf
}

// classify maps any error to an AppError. Unrecognized errors become an
// opaque 500.
func classify(err error, production bool) *apperrors.AppError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return apperrors.Validation("Validation failed", fieldErrorsFromStruct(ve)...)
	}

	if appErr, ok := apperrors.IsAppError(err); ok {
		return appErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPgError(pgErr, production)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.BadRequest("Malformed JSON body")
	}

	return apperrors.Internal("Internal server error")
}

// classifyPgError maps PostgreSQL error codes to API errors. Constraint and
// column names are always safe to return; table names and raw details leak
// schema internals and are stripped in production.
func classifyPgError(pgErr *pgconn.PgError, production bool) *apperrors.AppError {
	details := &apperrors.DBDetails{
		Constraint: pgErr.ConstraintName,
		Column:     pgErr.ColumnName,
	}
	if !production {
		details.Table = pgErr.TableName
		details.Detail = pgErr.Detail
	}

	switch pgErr.Code {
	case "23505":
		return apperrors.Conflict(apperrors.CodeDatabaseConflict,
			"Duplicate value violates unique constraint").WithDetails(details)
	case "23503":
		return apperrors.New(apperrors.CodeDatabaseValidation,
			"Referenced record does not exist", http.StatusBadRequest).WithDetails(details)
	case "23502":
		return apperrors.New(apperrors.CodeDatabaseValidation,
			"Required field is missing", http.StatusBadRequest).WithDetails(details)
	default:
		return apperrors.New(apperrors.CodeDatabase,
			"Database error occurred", http.StatusInternalServerError).WithDetails(details)
	}
}

func fieldErrorsFromStruct(ve validator.ValidationErrors) []apperrors.FieldError {
	out := make([]apperrors.FieldError, 0, len(ve))
	for _, fe := range ve {
		msg := fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed on the '%s=%s' rule", fe.Field(), fe.Tag(), fe.Param())
		}
		out = append(out, apperrors.FieldError{
			Field:   fe.Field(),
			Message: msg,
			Rule:    fe.Tag(),
		})
	}
	return out
}

func renderError(c *gin.Context, production bool, redactor *redact.Redactor, body []byte, appErr *apperrors.AppError, cause error) {
	rid := GetRequestID(c.Request.Context())

	resp := ErrorResponse{
		Status:     appErr.HTTPStatus,
		Code:       appErr.Code,
		Message:    appErr.Message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       c.Request.URL.Path,
		RequestID:  rid,
		Validation: appErr.FieldErrors,
	}
	if !appErr.Details.Empty() {
		resp.Details = appErr.Details
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("code", appErr.Code),
			zap.Int("status", appErr.HTTPStatus),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", rid),
			zap.Error(cause),
		)
		report(c, redactor, body, rid, cause)
	} else {
		logger.Warn("request rejected",
			zap.String("code", appErr.Code),
			zap.Int("status", appErr.HTTPStatus),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", rid),
		)
	}

	if c.Writer.Written() {
		return
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, resp)
}

// report forwards a server error to the tracker with redacted headers and
// body and the authenticated user when one is set.
func report(c *gin.Context, redactor *redact.Redactor, body []byte, rid string, cause error) {
	if !tracker.Enabled() {
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		headers[k] = c.Request.Header.Get(k)
	}
	redactedHeaders, _ := redactor.Redact(headers)

	var redactedBody any
	if len(body) > 0 {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			redactedBody, _ = redactor.Redact(parsed)
		}
	}

	var user *tracker.User
	if id := GetUserID(c.Request.Context()); id != "" {
		user = &tracker.User{ID: id, Email: GetUserEmail(c.Request.Context())}
	}

	tracker.CaptureException(cause, &tracker.RequestContext{
		Method:    c.Request.Method,
		URL:       c.Request.URL.String(),
		Path:      c.Request.URL.Path,
		Query:     c.Request.URL.RawQuery,
		RequestID: rid,
		Headers:   redactedHeaders,
		Body:      redactedBody,
	}, user)
}

// Package tracker is a thin wrapper over the external error-tracking
// service. Server errors (5xx) are forwarded here by the global error
// handler; everything the wrapper receives is expected to be redacted
// already.
//
// Import Path: novostudio.tech/foundation/internal/pkg/tracker
package tracker

import (
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"novostudio.tech/foundation/internal/pkg/logger"
)

var enabled bool

// RequestContext carries request data attached to a report.
// Headers and Body must be passed through the redactor by the caller.
type RequestContext struct {
	Method    string
	URL       string
	Path      string
	Query     string
	RequestID string
	Headers   any
	Body      any
}

// User identifies the authenticated principal on a report, when present.
type User struct {
	ID    string
	Email string
}

// Init configures the tracker. An empty DSN disables reporting entirely;
// every later call becomes a no-op.
func Init(dsn, environment string) error {
	if dsn == "" {
		logger.Info("error tracker disabled: no DSN configured")
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return err
	}
	enabled = true
	return nil
}

// Enabled reports whether Init configured a DSN.
func Enabled() bool { return enabled }

// CaptureException submits err with request context and user identity.
// Reporting must never crash the error handler: any failure here is
// swallowed and logged as a warning.
func CaptureException(err error, req *RequestContext, user *User) {
	if !enabled || err == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("error tracker submission failed",
				zap.Any("panic", r),
			)
		}
	}()

	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		if req != nil {
			scope.SetContext("request", sentry.Context{
				"method":     req.Method,
				"url":        req.URL,
				"query":      req.Query,
				"headers":    req.Headers,
				"body":       req.Body,
				"request_id": req.RequestID,
			})
			scope.SetTag("path", req.Path)
			scope.SetTag("method", req.Method)
			scope.SetTag("url", req.URL)
		}
		if user != nil {
			scope.SetUser(sentry.User{ID: user.ID, Email: user.Email})
		}
		hub.CaptureException(err)
	})
}

// Flush blocks until buffered events are sent or the timeout elapses.
func Flush(timeout time.Duration) {
	if !enabled {
		return
	}
	sentry.Flush(timeout)
}

// Package telemetry forwards internal failures to Sentry when a DSN is
// configured. Without one every call is a no-op.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"
)

func Init(dsn, environment string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// CaptureError reports err tagged with the given context. Tags must not carry
// image content or credentials.
func CaptureError(err error, tags map[string]string) {
	if err == nil || sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

func Flush(timeout time.Duration) {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.Flush(timeout)
}

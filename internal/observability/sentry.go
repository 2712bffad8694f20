// Package observability wires error reporting and HTTP request logging for the daemon.
package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry enables Sentry when dsn is set. An empty dsn leaves reporting disabled.
func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports err unless Sentry is disabled.
func CaptureError(err error) {
	if err == nil || sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.CaptureException(err)
}

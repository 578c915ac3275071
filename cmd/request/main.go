// Command request sends a single HTTP/1.1 request and prints the response.
//
//	request -i -H "Accept: text/plain" http://example.org/
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
)

var Version string

func main() {
	if err := setupSentry(); err != nil {
		log.Fatalf("sentry init failed: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := run(ctx, os.Args)
	stop()

	if err != nil {
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

// setupSentry reports failures to SENTRY_DSN when it is set.
func setupSentry() error {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return nil
	}

	environment := os.Getenv("SENTRY_ENVIRONMENT")
	if environment == "" {
		environment = "local"
	}

	release := "local"
	if Version != "" {
		release = Version
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
}

package rag

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

// isRetryable separates transient provider failures (rate limits, timeouts,
// service hiccups) from fatal ones (auth, malformed requests). Only the
// former are worth a backoff-and-retry.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// withRetry wraps one external call with bounded retry and doubling backoff.
// It never spans multiple pipeline steps; each call site owns its own budget.
func withRetry(ctx context.Context, log *logger_i.Logger, label string, call func() error) error {
	backoff := config.RetryBackoffBase
	var err error
	for attempt := 1; attempt <= config.RetryMaxAttempts; attempt++ {
		err = call()
		if err == nil || !isRetryable(err) {
			return err
		}
		if attempt == config.RetryMaxAttempts {
			break
		}
		log.Warn("Transient failure, backing off", "call", label, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

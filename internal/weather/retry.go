package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Outcome is the classification of a single upstream attempt
type Outcome int

const (
	// Success means the response can be decoded
	Success Outcome = iota
	// Retryable means the attempt failed for a transient reason
	Retryable
	// Fatal means the attempt failed and retrying will not help
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// RetryPolicy bounds the attempts made against an upstream. Delay is a fixed
// pause between consecutive attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy allows 10 attempts two seconds apart
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 10,
		Delay:       2 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// upstreamError is the error envelope Open-Meteo uses, e.g.
// {"error": true, "reason": "Too many concurrent requests"}
type upstreamError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Classify decides what to do with one attempt. err is the transport error,
// if any; status and body describe the response otherwise.
func Classify(status int, body []byte, err error) Outcome {
	if err != nil {
		return Retryable
	}
	if status == http.StatusTooManyRequests {
		return Retryable
	}
	if tooManyRequests(body) {
		return Retryable
	}
	if status >= 200 && status < 300 {
		return Success
	}
	return Fatal
}

func tooManyRequests(body []byte) bool {
	var e upstreamError
	if json.Unmarshal(body, &e) != nil || !e.Error {
		return false
	}
	reason := strings.ToLower(e.Reason)
	return strings.Contains(reason, "too many requests") || strings.Contains(reason, "too many concurrent requests")
}

// Sleeper pauses between attempts and returns early with the context error if
// the caller gives up.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep waits for d or until ctx is done
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package bot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"duque/pkg/retrylimit"
)

// restError exposes the HTTP status of a discordgo REST failure to retrylimit.
type restError struct {
	err *discordgo.RESTError
}

func (e *restError) Error() string { return e.err.Error() }
func (e *restError) Unwrap() error { return e.err }

func (e *restError) StatusCode() int {
	if e.err.Response == nil {
		return 0
	}
	return e.err.Response.StatusCode
}

// classify prepares a REST error for retrylimit: statuses become visible and
// client errors stop the retry loop.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var re *discordgo.RESTError
	if errors.As(err, &re) {
		err = &restError{err: re}
	}
	if retrylimit.IsClientError(err) {
		return &retrylimit.FatalError{Err: err}
	}
	return err
}

// Retry runs a Discord REST call through the limiter, retrying rate limits and
// server errors up to attempts times.
func Retry(ctx context.Context, lim *retrylimit.AdaptiveLimiter, attempts int, fn func() error) error {
	return retrylimit.WithRetryMax(ctx, func() error { return classify(fn()) }, lim, attempts)
}

// NewRESTLimiter returns the limiter used for bursts of REST calls.
func NewRESTLimiter() *retrylimit.AdaptiveLimiter {
	return retrylimit.NewAdaptiveLimiter(5, 1, 10, 1, 0.5)
}

// Package source fetches teams, events and match results from a
// The Blue Alliance compatible API (v3).
package source

import (
	"context"
	"errors"

	"github.com/okian/ace/internal/domain/model"
)

// Sentinel errors.
var (
	// ErrTransient marks failures worth retrying: network errors, 429 and 5xx.
	ErrTransient = errors.New("transient source error")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrUnexpectedStatus is any other non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrDecode reports a response body that is not the expected JSON.
	ErrDecode = errors.New("decode response")
)

// Source is the match data source used by the rating service.
type Source interface {
	// TeamsForYear lists the numbers of every team registered in year.
	TeamsForYear(ctx context.Context, year int) ([]int, error)
	// TeamEvents lists the events a team attended in year.
	TeamEvents(ctx context.Context, team, year int) ([]model.Event, error)
	// EventMatches lists every match of an event, played or not.
	EventMatches(ctx context.Context, eventKey string) ([]model.Match, error)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

package graphql

import "errors"

var (
	// ErrUnauthorized indicates the API rejected the access token, or no
	// token was available.
	ErrUnauthorized = errors.New("lms api: unauthorized")

	// ErrUnavailable indicates the API could not be reached or answered
	// with a server error.
	ErrUnavailable = errors.New("lms api unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("lms api request timed out")

	// ErrRemote indicates the API answered with GraphQL errors.
	ErrRemote = errors.New("lms api error")
)

// ErrNotFound indicates the API returned no record for the request.
var ErrNotFound = errors.New("lms api: not found")

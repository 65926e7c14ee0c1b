package session

import "errors"

var (
	ErrNoSession    = errors.New("not logged in")
	ErrExpired      = errors.New("session expired, log in again")
	ErrInvalidToken = errors.New("invalid access token")
)

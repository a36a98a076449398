package identity

import "errors"

var (
	ErrNotFound       = errors.New("identity: not found")
	ErrInvalidInput   = errors.New("identity: invalid input")
	ErrDuplicateLogin = errors.New("identity: login id already registered")
	ErrDuplicateEmail = errors.New("identity: email already registered")
	ErrInvalidState   = errors.New("identity: action not valid for current state")
)

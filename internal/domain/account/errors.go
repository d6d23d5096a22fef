package account

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrPhoneTaken         = errors.New("phone number already registered")
	ErrInvalidCredentials = errors.New("wrong phone number or password")
)

package domain

import "errors"

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSelfAction           = errors.New("cannot target yourself")
	ErrNotConnected         = errors.New("users are not connected")
	ErrEmptyMessage         = errors.New("message text is required")
	ErrInvalidSettings      = errors.New("invalid settings")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrRequestNotFound      = errors.New("connection request not found")
)

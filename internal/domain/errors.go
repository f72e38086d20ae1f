package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidOrder       = errors.New("invalid order parameters")
	ErrInvalidSignature   = errors.New("invalid payment signature")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrLockHeld           = errors.New("lock already held")
	ErrSkillLocked        = errors.New("skill locked")
	ErrInsufficientPoints = errors.New("insufficient stat points")
)

package errs

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidRating = errors.New("rating must be an integer between 1 and 5")
	ErrInvalidRole   = errors.New("role must be one of: user, admin")
	ErrEmptyUpdate   = errors.New("no fields to update")
	ErrForbidden     = errors.New("admin access required")
	ErrConflict      = errors.New("concurrent update, retry later")
	ErrEmptyURL      = errors.New("url is required")
	ErrInvalidLimit  = errors.New("limit must be a positive integer")
	ErrFileHost      = errors.New("link must point to a supported file host")
)

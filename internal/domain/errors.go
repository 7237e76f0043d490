package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation means the request is missing a required field or a field
	// is out of bounds. The caller must resupply.
	ErrValidation = errors.New("invalid request")

	// ErrNotFound means no post has the requested id.
	ErrNotFound = errors.New("post not found")

	// ErrForbidden means the post has no password and can never be changed
	// by its author.
	ErrForbidden = errors.New("post cannot be modified")

	// ErrUnauthorized means the supplied secret did not match.
	ErrUnauthorized = errors.New("incorrect password")

	// ErrRateLimited means too many recent failures were recorded for the
	// post. The caller must wait.
	ErrRateLimited = errors.New("too many failed attempts")

	// ErrConflict means the admin credential changed between read and write.
	ErrConflict = errors.New("credential changed concurrently")

	// ErrAdminNotConfigured means the admin credential record is missing.
	ErrAdminNotConfigured = errors.New("admin not configured")
)

var (
	errMissingField = fmt.Errorf("%w: missing required field", ErrValidation)
	errFieldTooLong = fmt.Errorf("%w: field too long", ErrValidation)
)

// Package common defines shared constants and sentinel errors used across
// the API server and the thumbnail worker. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")

	// Request validation errors.
	ErrMissingName = errors.New("missing name")
	ErrInvalidName = errors.New("invalid name")
	ErrMissingType = errors.New("missing type")
	ErrMissingData = errors.New("missing data")
	ErrInvalidData = errors.New("invalid data")
	ErrInvalidSize = errors.New("invalid size")

	// Tree errors.
	ErrParentNotFound   = errors.New("parent not found")
	ErrParentNotAFolder = errors.New("parent is not a folder")

	// Lookup errors. Missing and not-owned resources share ErrNotFound.
	ErrNotFound           = errors.New("not found")
	ErrFolderHasNoContent = errors.New("a folder doesn't have content")

	// Infrastructure errors.
	ErrStorage  = errors.New("storage error")
	ErrQueue    = errors.New("queue error")
	ErrInternal = errors.New("internal error")

	// Cache errors.
	ErrCacheMiss = errors.New("cache miss")

	// Thumbnail job errors.
	ErrMissingField      = errors.New("missing job field")
	ErrFileNotFound      = errors.New("file not found")
	ErrLocalPathNotFound = errors.New("local path not found")
	ErrReadFailure       = errors.New("job input read failed")
	ErrResizeFailure     = errors.New("resize failed")
	ErrWriteFailure      = errors.New("derived blob write failed")
)

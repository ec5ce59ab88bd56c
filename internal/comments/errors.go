package comments

import (
	"errors"
	"net/http"
)

// Domain errors for comment operations.
var (
	ErrNotFound              = errors.New("comment not found")
	ErrDuplicate             = errors.New("comment already exists")
	ErrForbidden             = errors.New("not permitted on this comment")
	ErrInvalidComment        = errors.New("comment must be between 1 and 1000 characters")
	ErrInvalidClassification = errors.New("classification_id is required")
	ErrNoSnapshot            = errors.New("comment has no snapshot")
	ErrInvalidSnapshot       = errors.New("snapshot must be a JPEG image")
	ErrSnapshotTooLarge      = errors.New("snapshot exceeds maximum size")
)

// MapHTTPStatus maps comment domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoSnapshot):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidComment),
		errors.Is(err, ErrInvalidClassification),
		errors.Is(err, ErrInvalidSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, ErrSnapshotTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrInvalidRequest indicates a sync request is missing required fields
	ErrInvalidRequest = errors.New("invalid sync request")

	// ErrAnnotationsUnavailable indicates the annotation set could not be fetched
	ErrAnnotationsUnavailable = errors.New("annotation set unavailable")

	// ErrImagesUnavailable indicates the image keys could not be enumerated
	ErrImagesUnavailable = errors.New("image listing unavailable")

	// ErrDuplicateFileName indicates two images of a dataset share a file name
	ErrDuplicateFileName = errors.New("duplicate image file name")

	// ErrRunNotFound indicates the requested run is not recorded
	ErrRunNotFound = errors.New("run not found")
)
